package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// SQLiteSink is a single-file ResultSink, grounded on
// alvmarrod-web-weaver's internal/storage/sqlite.go (WAL-mode open,
// ON CONFLICT upsert, initSchema-on-construct). Useful for a demo run
// or a single-process crawl where a Postgres server is overkill.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if needed) a SQLite database at path
// and applies the sink's schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: ping sqlite database: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_results (
		url TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		error TEXT,
		source TEXT,
		crawled_at TIMESTAMP,
		retry_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS crawl_pages (
		url TEXT PRIMARY KEY,
		title TEXT,
		raw_content TEXT,
		fields TEXT,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS crawl_retries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		retry_count INTEGER NOT NULL,
		not_before TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawl_results_source ON crawl_results(source);
	CREATE INDEX IF NOT EXISTS idx_crawl_retries_not_before ON crawl_retries(not_before);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) SaveResult(ctx context.Context, result types.CrawlResult) error {
	source := result.Request.Attr("source")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_results (url, status, error, source, crawled_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			source = excluded.source,
			crawled_at = excluded.crawled_at,
			retry_count = excluded.retry_count
	`, result.Request.URL, result.Status.String(), result.Error, source, result.Timestamp, result.Request.RetryCount())
	if err != nil {
		return fmt.Errorf("sink: save result: %w", err)
	}

	if isRetryable(result.Status) {
		return s.enqueueRetry(ctx, result)
	}
	return nil
}

func (s *SQLiteSink) SaveWebPage(ctx context.Context, page types.WebPage) error {
	fields, err := json.Marshal(page.Fields)
	if err != nil {
		return fmt.Errorf("sink: marshal page fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO crawl_pages (url, title, raw_content, fields, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			raw_content = excluded.raw_content,
			fields = excluded.fields,
			completed_at = excluded.completed_at
	`, page.URL, page.Title, page.RawContent, string(fields), page.CompletedAt)
	if err != nil {
		return fmt.Errorf("sink: save web page: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WasRecentlyCrawled(ctx context.Context, url string, withinMinutes int) (bool, error) {
	var crawledAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT crawled_at FROM crawl_results WHERE url = ?`, url).Scan(&crawledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sink: query recently crawled: %w", err)
	}
	return time.Since(crawledAt) < time.Duration(withinMinutes)*time.Minute, nil
}

func (s *SQLiteSink) FindByURL(ctx context.Context, url string) (types.CrawlResult, bool, error) {
	var result types.CrawlResult
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT url, status, error, crawled_at FROM crawl_results WHERE url = ?`, url).
		Scan(&result.Request.URL, &status, &result.Error, &result.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CrawlResult{}, false, nil
	}
	if err != nil {
		return types.CrawlResult{}, false, fmt.Errorf("sink: find by url: %w", err)
	}
	if parsed, ok := types.ParseCrawlStatus(status); ok {
		result.Status = parsed
	}
	return result, true, nil
}

func (s *SQLiteSink) GetCrawlStats(ctx context.Context, source string) (CrawlStats, error) {
	stats := CrawlStats{Source: source}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status NOT IN ('SUCCESS', 'SKIPPED') THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'SKIPPED' THEN 1 ELSE 0 END),
			COALESCE(MAX(crawled_at), 0)
		FROM crawl_results WHERE source = ?
	`, source).Scan(&stats.TotalCrawled, &stats.TotalSucceeded, &stats.TotalFailed, &stats.TotalSkipped, &stats.LastCompletedAt)
	if err != nil {
		return CrawlStats{}, fmt.Errorf("sink: get crawl stats: %w", err)
	}
	return stats, nil
}

func (s *SQLiteSink) GetFailedForRetry(ctx context.Context, maxRetries int) ([]types.CrawlRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, retry_count FROM crawl_retries
		WHERE not_before <= ? AND retry_count < ?
	`, time.Now(), maxRetries)
	if err != nil {
		return nil, fmt.Errorf("sink: get failed for retry: %w", err)
	}
	defer rows.Close()

	var due []types.CrawlRequest
	var ids []int64
	for rows.Next() {
		var id int64
		var req types.CrawlRequest
		var retryCount int
		if err := rows.Scan(&id, &req.URL, &retryCount); err != nil {
			return nil, fmt.Errorf("sink: scan retry row: %w", err)
		}
		req.Attrs = map[string]string{"retryCount": fmt.Sprintf("%d", retryCount+1)}
		due = append(due, req)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sink: iterate retry rows: %w", err)
	}
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM crawl_retries WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("sink: clear retry row: %w", err)
		}
	}
	return due, nil
}

func (s *SQLiteSink) enqueueRetry(ctx context.Context, result types.CrawlResult) error {
	retryCount := result.Request.RetryCount()
	notBefore := time.Now().Add(backoff(retryCount))
	_, err := s.db.ExecContext(ctx, `INSERT INTO crawl_retries (url, retry_count, not_before) VALUES (?, ?, ?)`,
		result.Request.URL, retryCount, notBefore)
	if err != nil {
		return fmt.Errorf("sink: enqueue retry: %w", err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
