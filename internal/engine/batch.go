package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// BatchCrawl runs a standalone crawl with its own worker pool and
// channel pair, independent of Start/Stop. The returned stream closes
// exactly when every input request and every transitively discovered
// child has completed.
//
// Grounded on pranav11024-Smart-Go-WebCrawler/crawler/smart.go's
// ticker-driven worker loop with its own channel pair, adapted here to
// complete on a pending-count reaching zero instead of running forever.
func (e *Engine) BatchCrawl(ctx context.Context, requests []types.CrawlRequest, maxConcurrency int, batchID string) (<-chan types.CrawlResult, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = e.cfg.MaxConcurrency
	}
	queueCapacity := e.cfg.QueueCapacity
	if queueCapacity <= 0 {
		queueCapacity = 10_000
	}

	resultBuffer := e.cfg.ResultBufferSize
	if resultBuffer <= 0 {
		resultBuffer = 1_000
	}
	resultCh := make(chan types.CrawlResult, resultBuffer)

	if len(requests) == 0 {
		close(resultCh)
		return resultCh, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	pool, err := NewWorkerPool(runCtx, maxConcurrency, queueCapacity)
	if err != nil {
		cancel()
		close(resultCh)
		return resultCh, err
	}

	var pending atomic.Int64
	var finishOnce sync.Once
	finish := func() {
		finishOnce.Do(func() {
			cancel()
			go func() {
				pool.Close()
				close(resultCh)
			}()
		})
	}

	var enqueue func(req types.CrawlRequest)
	enqueue = func(req types.CrawlRequest) {
		req = e.stampRequest(req)
		req.Attrs = withBatchID(req.Attrs, batchID)

		runJob := func(jobCtx context.Context) {
			result := e.pipeline.Execute(jobCtx, req)
			e.recordCompletion(result)

			select {
			case resultCh <- result:
			case <-jobCtx.Done():
			}

			if result.Status == types.StatusSuccess && len(result.Children) > 0 {
				pending.Add(int64(len(result.Children)))
				for _, child := range result.Children {
					enqueue(child)
				}
			}
			if pending.Add(-1) == 0 {
				finish()
			}
		}

		if !pool.TrySubmit(runJob) {
			// The job queue is full: wait for space off the caller's
			// goroutine so no request is dropped and no worker blocks.
			go func() {
				if err := pool.Submit(runCtx, runJob); err != nil {
					if pending.Add(-1) == 0 {
						finish()
					}
				}
			}()
		}
	}

	pending.Add(int64(len(requests)))
	for _, req := range requests {
		enqueue(req)
	}

	e.logger.Info("batch crawl started", "batchId", batchID, "requests", len(requests))
	return resultCh, nil
}

func withBatchID(attrs map[string]string, batchID string) map[string]string {
	if batchID == "" {
		return attrs
	}
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out["batchId"] = batchID
	return out
}
