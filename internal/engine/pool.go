package engine

import (
	"context"
	"errors"
	"sync"
)

type job func(ctx context.Context)

var errPoolClosed = errors.New("worker pool is closed")

// WorkerPool coordinates crawl workers over a bounded job queue, the
// engine's request backpressure mechanism: Submit blocks while the
// queue is full, TrySubmit drops instead of blocking.
//
// Shutdown never closes the jobs channel: a worker mid-job can still
// call TrySubmit/Submit to re-inject a child before it observes
// cancellation, and a send on a closed channel panics even inside a
// select with a default case. Close instead flips a closed flag (so
// new sends become no-ops/errors) and cancels ctx, which the worker
// loop's select observes to exit.
//
// Grounded on the teacher's internal/crawler/worker_pool.go.
type WorkerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool with the given concurrency and queue size.
func NewWorkerPool(parent context.Context, concurrency, queueSize int) (*WorkerPool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &WorkerPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, queueSize),
	}
	pool.start(concurrency)
	return pool, nil
}

func (p *WorkerPool) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job := <-p.jobs:
					job(p.ctx)
				}
			}
		}()
	}
}

// Submit schedules a job, blocking for backpressure until space frees,
// the pool closes, or ctx cancels.
func (p *WorkerPool) Submit(ctx context.Context, fn job) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return errPoolClosed
	}

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- fn:
		return nil
	}
}

// TrySubmit offers a job without blocking, reporting false if the queue
// is full or the pool is closed. Used for child-request re-injection
// per spec.md §4.1's "non-blocking try-send, drop silently on full
// queue" worker-loop rule.
func (p *WorkerPool) TrySubmit(fn job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- fn:
		return true
	default:
		return false
	}
}

// QueueLen reports the number of jobs currently buffered, for stats().
func (p *WorkerPool) QueueLen() int {
	return len(p.jobs)
}

// Close marks the pool closed, cancels every worker's context, and
// waits for them to drain. It never closes the jobs channel.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
