// Package engine implements the scheduler and worker pool that drives
// the page pipeline: Start/Submit/SubmitMany/Stats/Stop for a long-lived
// run, and BatchCrawl (in batch.go) for a standalone one-shot run.
//
// Grounded on the teacher's internal/crawler/crawler.go Run/enqueue
// (seed submission, child re-injection, wg.Wait completion signal) and
// worker_pool.go (bounded job channel, context-cancelled workers),
// generalised from a single-shot Run(ctx) into the long-lived
// Start()/Stop() engine spec.md §4.1 describes.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DreamForgeSolutions/Krawler/internal/pipeline"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// State is the engine's lifecycle state machine: IDLE -> RUNNING ->
// STOPPED. Re-entry to RUNNING after STOPPED requires a new instance.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stats is the cheap, concurrency-safe snapshot returned by Stats().
type Stats struct {
	Running     bool
	Total       int64
	Processed   int64
	Successes   int64
	Failures    int64
	QueueSize   int
	RPS         float64
	SuccessRate float64
}

const rpsWindow = 60 * time.Second
const rpsMaxSamples = 1000
const progressMilestone = 1000

// Engine owns the request queue, worker pool and result stream for a
// single run. It is not reusable after Stop(); build a new Engine for
// another run.
type Engine struct {
	cfg      types.CrawlerConfig
	pipeline *pipeline.Pipeline
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	pool     *WorkerPool
	resultCh chan types.CrawlResult
	cancel   context.CancelFunc

	total     atomic.Int64
	processed atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64

	rpsMu       sync.Mutex
	completions []time.Time
}

// New builds an Engine from a pipeline and configuration. Zero-valued
// fields in cfg fall back to spec.md §4.1's construction defaults.
func New(cfg types.CrawlerConfig, pl *pipeline.Pipeline, logger *slog.Logger) *Engine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 50
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 10_000
	}
	if cfg.ResultBufferSize <= 0 {
		cfg.ResultBufferSize = 1_000
	}
	if cfg.ProgressReportIntervalMs <= 0 {
		cfg.ProgressReportIntervalMs = 5_000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, pipeline: pl, logger: logger}
}

// Start idempotently transitions the engine to RUNNING, spawns
// maxConcurrency workers, and returns the result stream. It fails with
// ErrAlreadyRunning if called while RUNNING, or after STOPPED.
func (e *Engine) Start(ctx context.Context) (<-chan types.CrawlResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, types.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	pool, err := NewWorkerPool(runCtx, e.cfg.MaxConcurrency, e.cfg.QueueCapacity)
	if err != nil {
		cancel()
		return nil, err
	}

	e.pool = pool
	e.cancel = cancel
	e.resultCh = make(chan types.CrawlResult, e.cfg.ResultBufferSize)
	e.state = StateRunning

	go e.monitorProgress(runCtx)

	return e.resultCh, nil
}

// Submit enqueues a request onto the bounded request queue, suspending
// for backpressure until space frees, the engine stops, or ctx cancels.
func (e *Engine) Submit(ctx context.Context, req types.CrawlRequest) error {
	e.mu.Lock()
	running := e.state == StateRunning
	pool := e.pool
	e.mu.Unlock()
	if !running {
		return types.ErrNotRunning
	}

	req = e.stampRequest(req)
	e.total.Add(1)
	if err := pool.Submit(ctx, e.job(req)); err != nil {
		e.total.Add(-1)
		return err
	}
	return nil
}

// SubmitMany submits every request in order, stopping at the first
// error (typically ErrNotRunning, if Stop raced the caller).
func (e *Engine) SubmitMany(ctx context.Context, reqs []types.CrawlRequest) error {
	for _, req := range reqs {
		if err := e.Submit(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns a cheap, concurrency-safe snapshot.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	running := e.state == StateRunning
	var queueSize int
	if e.pool != nil {
		queueSize = e.pool.QueueLen()
	}
	e.mu.Unlock()

	processed := e.processed.Load()
	successes := e.successes.Load()
	failures := e.failures.Load()
	total := e.total.Load()

	var successRate float64
	if processed > 0 {
		successRate = float64(successes) / float64(processed)
	}

	return Stats{
		Running:     running,
		Total:       total,
		Processed:   processed,
		Successes:   successes,
		Failures:    failures,
		QueueSize:   queueSize,
		RPS:         e.rps(),
		SuccessRate: successRate,
	}
}

// Stop transitions to STOPPED, closes the request queue, joins workers
// and closes the result channel. It is a no-op when not RUNNING.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	pool := e.pool
	cancel := e.cancel
	resultCh := e.resultCh
	e.mu.Unlock()

	cancel()
	if pool != nil {
		pool.Close()
	}
	if resultCh != nil {
		close(resultCh)
	}
}

// job builds the worker-loop closure for req: run the pipeline, record
// the completion, emit the result, and non-blockingly re-offer any
// child requests per spec.md §4.1's worker-loop rule.
func (e *Engine) job(req types.CrawlRequest) job {
	return func(ctx context.Context) {
		result := e.pipeline.Execute(ctx, req)
		e.recordCompletion(result)

		select {
		case e.resultCh <- result:
		case <-ctx.Done():
		}

		if result.Status != types.StatusSuccess {
			return
		}
		for _, child := range result.Children {
			child = e.stampRequest(child)
			e.total.Add(1)
			if !e.pool.TrySubmit(e.job(child)) {
				e.total.Add(-1)
			}
		}
	}
}

func (e *Engine) stampRequest(req types.CrawlRequest) types.CrawlRequest {
	if req.ID == "" {
		req.ID = types.NewRequestID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	return req
}

func (e *Engine) recordCompletion(result types.CrawlResult) {
	e.processed.Add(1)
	if result.Status == types.StatusSuccess {
		e.successes.Add(1)
	} else {
		e.failures.Add(1)
	}

	e.rpsMu.Lock()
	now := time.Now()
	e.completions = append(e.completions, now)
	e.pruneLocked(now)
	e.rpsMu.Unlock()
}

// pruneLocked drops completions older than the RPS window, and trims to
// at most rpsMaxSamples, per spec.md §4.1's "whichever is tighter".
// Callers must hold rpsMu.
func (e *Engine) pruneLocked(now time.Time) {
	cutoff := now.Add(-rpsWindow)
	i := 0
	for i < len(e.completions) && e.completions[i].Before(cutoff) {
		i++
	}
	e.completions = e.completions[i:]
	if len(e.completions) > rpsMaxSamples {
		e.completions = e.completions[len(e.completions)-rpsMaxSamples:]
	}
}

func (e *Engine) rps() float64 {
	e.rpsMu.Lock()
	defer e.rpsMu.Unlock()
	now := time.Now()
	e.pruneLocked(now)
	if len(e.completions) == 0 {
		return 0
	}
	span := now.Sub(e.completions[0]).Seconds()
	if span < 1 {
		span = 1
	}
	return float64(len(e.completions)) / span
}

// monitorProgress wakes every progressReportIntervalMs and logs a line
// for each multiple of 1000 that processed has crossed since the last
// tick, per spec.md §4.1.
func (e *Engine) monitorProgress(ctx context.Context) {
	interval := time.Duration(e.cfg.ProgressReportIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMilestone int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := e.Stats()
			milestone := stats.Processed / progressMilestone
			for m := lastMilestone + 1; m <= milestone; m++ {
				e.logger.Info("crawl progress",
					"processed", m*progressMilestone,
					"successes", stats.Successes,
					"failures", stats.Failures,
					"rps", stats.RPS,
				)
			}
			lastMilestone = milestone
		}
	}
}
