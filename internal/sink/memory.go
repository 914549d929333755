package sink

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

type recentEntry struct {
	crawledAt time.Time
}

type retryEntry struct {
	request    types.CrawlRequest
	errorMsg   string
	retryCount int
	notBefore  time.Time
}

// MemorySink is an in-process ResultSink: a recently-crawled map of
// last-save times for the dedup check, a results-by-URL map for
// FindByURL, per-source counters for GetCrawlStats, and a
// mutex-guarded retry list that GetFailedForRetry drains.
//
// Grounded on the teacher's internal/crawler/footprint.go (bounded,
// TTL-evicting visited-URL map), generalised from "should I revisit"
// into the dedup/retry sink contract spec.md §6 requires.
type MemorySink struct {
	maxEntries int

	mu      sync.RWMutex
	recent  map[string]recentEntry
	results map[string]types.CrawlResult
	stats   map[string]CrawlStats

	retryMu sync.Mutex
	retries []retryEntry
}

// NewMemorySink constructs a MemorySink. maxEntries <= 0 defaults to
// 200,000, matching the teacher's footprint.go default capacity.
func NewMemorySink(maxEntries int) *MemorySink {
	if maxEntries <= 0 {
		maxEntries = 200_000
	}
	return &MemorySink{
		maxEntries: maxEntries,
		recent:     make(map[string]recentEntry),
		results:    make(map[string]types.CrawlResult),
		stats:      make(map[string]CrawlStats),
	}
}

func (m *MemorySink) SaveResult(ctx context.Context, result types.CrawlResult) error {
	key := canonicalKey(result.Request.URL)

	m.mu.Lock()
	m.recent[key] = recentEntry{crawledAt: time.Now()}
	m.results[key] = result
	m.evictIfFullLocked()
	source := result.Request.Attr("source")
	s := m.stats[source]
	s.Source = source
	s.TotalCrawled++
	switch result.Status {
	case types.StatusSuccess:
		s.TotalSucceeded++
	case types.StatusSkipped:
		s.TotalSkipped++
	default:
		s.TotalFailed++
	}
	s.LastCompletedAt = result.Timestamp
	m.stats[source] = s
	m.mu.Unlock()

	if isRetryable(result.Status) {
		m.enqueueRetry(result)
	}
	return nil
}

func (m *MemorySink) SaveWebPage(ctx context.Context, page types.WebPage) error {
	// The reference sink stores pages inline on the CrawlResult; a
	// standalone page store is an external collaborator's concern.
	return nil
}

func (m *MemorySink) WasRecentlyCrawled(ctx context.Context, url string, withinMinutes int) (bool, error) {
	m.mu.RLock()
	entry, ok := m.recent[canonicalKey(url)]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	window := time.Duration(withinMinutes) * time.Minute
	return time.Since(entry.crawledAt) < window, nil
}

func (m *MemorySink) FindByURL(ctx context.Context, url string) (types.CrawlResult, bool, error) {
	m.mu.RLock()
	result, ok := m.results[canonicalKey(url)]
	m.mu.RUnlock()
	return result, ok, nil
}

func (m *MemorySink) GetCrawlStats(ctx context.Context, source string) (CrawlStats, error) {
	m.mu.RLock()
	s := m.stats[source]
	m.mu.RUnlock()
	return s, nil
}

// GetFailedForRetry drains every queued retry whose notBefore has
// elapsed and whose retry count is still below maxRetries, returning
// requests recloned with an incremented retry-count attribute.
func (m *MemorySink) GetFailedForRetry(ctx context.Context, maxRetries int) ([]types.CrawlRequest, error) {
	now := time.Now()

	m.retryMu.Lock()
	defer m.retryMu.Unlock()

	var due []types.CrawlRequest
	var remaining []retryEntry
	for _, entry := range m.retries {
		if entry.notBefore.After(now) {
			remaining = append(remaining, entry)
			continue
		}
		if entry.retryCount >= maxRetries {
			continue
		}
		req := entry.request
		attrs := make(map[string]string, len(req.Attrs)+1)
		for k, v := range req.Attrs {
			attrs[k] = v
		}
		attrs["retryCount"] = strconv.Itoa(entry.retryCount + 1)
		req.Attrs = attrs
		due = append(due, req)
	}
	m.retries = remaining
	return due, nil
}

// enqueueRetry implements spec.md §7's retry-on-failure policy: a
// FAILED result is recloned with an incremented retry-count and a
// timestamp five minutes out, to be re-issued on a later
// GetFailedForRetry pull.
func (m *MemorySink) enqueueRetry(result types.CrawlResult) {
	m.retryMu.Lock()
	defer m.retryMu.Unlock()
	m.retries = append(m.retries, retryEntry{
		request:    result.Request,
		errorMsg:   result.Error,
		retryCount: result.Request.RetryCount(),
		notBefore:  time.Now().Add(backoff(result.Request.RetryCount())),
	})
}

func isRetryable(status types.CrawlStatus) bool {
	switch status {
	case types.StatusFailed, types.StatusNetworkError, types.StatusTimeout:
		return true
	default:
		return false
	}
}

// backoff is the fixed five-minute retry delay spec.md §7 specifies for
// a FAILED reclone, independent of retryCount.
func backoff(retryCount int) time.Duration {
	return 5 * time.Minute
}

func (m *MemorySink) evictIfFullLocked() {
	if len(m.recent) <= m.maxEntries {
		return
	}
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range m.recent {
		if oldestKey == "" || entry.crawledAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.crawledAt
		}
	}
	if oldestKey != "" {
		delete(m.recent, oldestKey)
		delete(m.results, oldestKey)
	}
}

func canonicalKey(rawURL string) string {
	return strings.ToLower(strings.TrimSpace(rawURL))
}
