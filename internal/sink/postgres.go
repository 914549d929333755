package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// PostgresSink is a ResultSink backed by database/sql and
// github.com/lib/pq, grounded on the teacher's
// internal/storage/storage.go SQLWriter (upsert-on-conflict, schema
// auto-migration, pq.Error code inspection), adapted from a
// page-persistence writer into the full ResultSink contract spec.md §6
// requires: dedup, retrieval and the retry queue now live in SQL tables
// instead of in-process maps.
type PostgresSink struct {
	db          *sql.DB
	autoMigrate bool
}

// PostgresOptions configures a PostgresSink.
type PostgresOptions struct {
	DSN          string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
}

// NewPostgresSink opens a connection and, if requested, applies the
// sink's schema.
func NewPostgresSink(opts PostgresOptions) (*PostgresSink, error) {
	if opts.DSN == "" {
		return nil, errors.New("sink: postgres dsn is required")
	}
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sink: open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sink: ping postgres connection: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	s := &PostgresSink{db: db, autoMigrate: opts.AutoMigrate}
	if opts.AutoMigrate {
		if err := s.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PostgresSink) SaveResult(ctx context.Context, result types.CrawlResult) error {
	status := result.Status.String()
	source := result.Request.Attr("source")

	err := s.upsertResult(ctx, result, status, source)
	if err != nil && s.autoMigrate && isUndefinedTableErr(err) {
		if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
			return fmt.Errorf("sink: ensure schema: %w", schemaErr)
		}
		err = s.upsertResult(ctx, result, status, source)
	}
	if err != nil {
		return fmt.Errorf("sink: save result: %w", err)
	}

	if isRetryable(result.Status) {
		return s.enqueueRetry(ctx, result)
	}
	return nil
}

func (s *PostgresSink) upsertResult(ctx context.Context, result types.CrawlResult, status, source string) error {
	const query = `
        INSERT INTO crawl_results (url, status, error, source, crawled_at, retry_count)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (url) DO UPDATE SET
            status = EXCLUDED.status,
            error = EXCLUDED.error,
            source = EXCLUDED.source,
            crawled_at = EXCLUDED.crawled_at,
            retry_count = EXCLUDED.retry_count
    `
	_, err := s.db.ExecContext(ctx, query,
		result.Request.URL, status, result.Error, source, result.Timestamp, result.Request.RetryCount(),
	)
	return err
}

func (s *PostgresSink) SaveWebPage(ctx context.Context, page types.WebPage) error {
	fields, err := json.Marshal(page.Fields)
	if err != nil {
		return fmt.Errorf("sink: marshal page fields: %w", err)
	}
	const query = `
        INSERT INTO crawl_pages (url, title, raw_content, fields, completed_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (url) DO UPDATE SET
            title = EXCLUDED.title,
            raw_content = EXCLUDED.raw_content,
            fields = EXCLUDED.fields,
            completed_at = EXCLUDED.completed_at
    `
	if _, err := s.db.ExecContext(ctx, query, page.URL, page.Title, page.RawContent, fields, page.CompletedAt); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("sink: ensure schema: %w", schemaErr)
			}
			_, err = s.db.ExecContext(ctx, query, page.URL, page.Title, page.RawContent, fields, page.CompletedAt)
		}
		if err != nil {
			return fmt.Errorf("sink: save web page: %w", err)
		}
	}
	return nil
}

func (s *PostgresSink) WasRecentlyCrawled(ctx context.Context, url string, withinMinutes int) (bool, error) {
	const query = `SELECT crawled_at FROM crawl_results WHERE url = $1`
	var crawledAt time.Time
	err := s.db.QueryRowContext(ctx, query, url).Scan(&crawledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sink: query recently crawled: %w", err)
	}
	return time.Since(crawledAt) < time.Duration(withinMinutes)*time.Minute, nil
}

func (s *PostgresSink) FindByURL(ctx context.Context, url string) (types.CrawlResult, bool, error) {
	const query = `SELECT url, status, error, crawled_at, retry_count FROM crawl_results WHERE url = $1`
	var result types.CrawlResult
	var status string
	var retryCount int
	err := s.db.QueryRowContext(ctx, query, url).Scan(&result.Request.URL, &status, &result.Error, &result.Timestamp, &retryCount)
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

func (s *PostgresSink) GetCrawlStats(ctx context.Context, source string) (CrawlStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'SUCCESS'),
            COUNT(*) FILTER (WHERE status NOT IN ('SUCCESS', 'SKIPPED')),
            COUNT(*) FILTER (WHERE status = 'SKIPPED'),
            COALESCE(MAX(crawled_at), to_timestamp(0))
        FROM crawl_results WHERE source = $1
    `
	stats := CrawlStats{Source: source}
	err := s.db.QueryRowContext(ctx, query, source).Scan(
		&stats.TotalCrawled, &stats.TotalSucceeded, &stats.TotalFailed, &stats.TotalSkipped, &stats.LastCompletedAt,
	)
	if err != nil {
		return CrawlStats{}, fmt.Errorf("sink: get crawl stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresSink) GetFailedForRetry(ctx context.Context, maxRetries int) ([]types.CrawlRequest, error) {
	const selectQuery = `
        SELECT id, url, retry_count FROM crawl_retries
        WHERE not_before <= now() AND retry_count < $1
    `
	rows, err := s.db.QueryContext(ctx, selectQuery, maxRetries)
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
		if _, err := s.db.ExecContext(ctx, `DELETE FROM crawl_retries WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("sink: clear retry row: %w", err)
		}
	}
	return due, nil
}

func (s *PostgresSink) enqueueRetry(ctx context.Context, result types.CrawlResult) error {
	retryCount := result.Request.RetryCount()
	notBefore := time.Now().Add(backoff(retryCount))
	const query = `INSERT INTO crawl_retries (url, retry_count, not_before) VALUES ($1,$2,$3)`
	if _, err := s.db.ExecContext(ctx, query, result.Request.URL, retryCount, notBefore); err != nil {
		return fmt.Errorf("sink: enqueue retry: %w", err)
	}
	return nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS crawl_results (
            url TEXT PRIMARY KEY,
            status TEXT NOT NULL,
            error TEXT,
            source TEXT,
            crawled_at TIMESTAMPTZ,
            retry_count INT
        )`,
		`CREATE TABLE IF NOT EXISTS crawl_pages (
            url TEXT PRIMARY KEY,
            title TEXT,
            raw_content TEXT,
            fields JSONB,
            completed_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS crawl_retries (
            id SERIAL PRIMARY KEY,
            url TEXT NOT NULL,
            retry_count INT NOT NULL,
            not_before TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_results_source ON crawl_results (source)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_retries_not_before ON crawl_retries (not_before)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("sink: apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
