// Package sink defines the ResultSink collaborator contract from
// spec.md §6 and ships three reference implementations: an in-memory
// sink, a Postgres sink and a SQLite sink.
package sink

import (
	"context"
	"time"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// CrawlStats summarises a source's crawl progress for getCrawlStats.
type CrawlStats struct {
	Source          string
	TotalCrawled    int
	TotalSucceeded  int
	TotalFailed     int
	TotalSkipped    int
	LastCompletedAt time.Time
}

// ResultSink is the result-persistence collaborator the pipeline calls
// after every request, and the source of the dedup check before
// fetching. Implementations must make WasRecentlyCrawled cheap — a
// last-seen map with minute precision is sufficient per spec.md §6 —
// and must guard their retry list with a mutex.
type ResultSink interface {
	SaveResult(ctx context.Context, result types.CrawlResult) error
	SaveWebPage(ctx context.Context, page types.WebPage) error
	WasRecentlyCrawled(ctx context.Context, url string, withinMinutes int) (bool, error)
	FindByURL(ctx context.Context, url string) (types.CrawlResult, bool, error)
	GetCrawlStats(ctx context.Context, source string) (CrawlStats, error)
	GetFailedForRetry(ctx context.Context, maxRetries int) ([]types.CrawlRequest, error)
}
