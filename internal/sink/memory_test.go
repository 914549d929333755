package sink

import (
	"context"
	"testing"
	"time"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func TestMemorySinkWasRecentlyCrawled(t *testing.T) {
	s := NewMemorySink(0)
	ctx := context.Background()

	if recent, err := s.WasRecentlyCrawled(ctx, "https://example.com/", 60); err != nil || recent {
		t.Fatalf("expected not recently crawled, got recent=%v err=%v", recent, err)
	}

	s.SaveResult(ctx, types.CrawlResult{
		Request:   types.CrawlRequest{URL: "https://example.com/"},
		Status:    types.StatusSuccess,
		Timestamp: time.Now(),
	})

	recent, err := s.WasRecentlyCrawled(ctx, "HTTPS://Example.com/", 60)
	if err != nil || !recent {
		t.Fatalf("expected case-insensitive recently crawled hit, got recent=%v err=%v", recent, err)
	}
}

func TestMemorySinkFindByURL(t *testing.T) {
	s := NewMemorySink(0)
	ctx := context.Background()

	if _, ok, _ := s.FindByURL(ctx, "https://example.com/"); ok {
		t.Fatal("expected no result before save")
	}

	s.SaveResult(ctx, types.CrawlResult{
		Request: types.CrawlRequest{URL: "https://example.com/"},
		Status:  types.StatusSuccess,
	})

	result, ok, err := s.FindByURL(ctx, "https://example.com/")
	if err != nil || !ok || result.Status != types.StatusSuccess {
		t.Fatalf("got result=%+v ok=%v err=%v", result, ok, err)
	}
}

func TestMemorySinkCrawlStats(t *testing.T) {
	s := NewMemorySink(0)
	ctx := context.Background()

	s.SaveResult(ctx, types.CrawlResult{
		Request: types.CrawlRequest{URL: "https://a.example/", Attrs: map[string]string{"source": "news"}},
		Status:  types.StatusSuccess,
	})
	s.SaveResult(ctx, types.CrawlResult{
		Request: types.CrawlRequest{URL: "https://b.example/", Attrs: map[string]string{"source": "news"}},
		Status:  types.StatusFailed,
	})
	s.SaveResult(ctx, types.CrawlResult{
		Request: types.CrawlRequest{URL: "https://c.example/", Attrs: map[string]string{"source": "news"}},
		Status:  types.StatusSkipped,
	})

	stats, err := s.GetCrawlStats(ctx, "news")
	if err != nil {
		t.Fatalf("GetCrawlStats: %v", err)
	}
	if stats.TotalCrawled != 3 || stats.TotalSucceeded != 1 || stats.TotalFailed != 1 || stats.TotalSkipped != 1 {
		t.Fatalf("got stats %+v", stats)
	}
}

func TestMemorySinkRetryQueueRespectsBackoffAndMaxRetries(t *testing.T) {
	s := NewMemorySink(0)
	ctx := context.Background()

	req := types.CrawlRequest{URL: "https://flaky.example/"}
	s.SaveResult(ctx, types.CrawlResult{Request: req, Status: types.StatusNetworkError})

	// backoff is a fixed five minutes, so nothing should be due immediately.
	due, err := s.GetFailedForRetry(ctx, 3)
	if err != nil {
		t.Fatalf("GetFailedForRetry: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no due retries yet, got %d", len(due))
	}

	// Force the queued entry due without sleeping five minutes.
	s.retryMu.Lock()
	for i := range s.retries {
		s.retries[i].notBefore = time.Now().Add(-time.Second)
	}
	s.retryMu.Unlock()

	due, err = s.GetFailedForRetry(ctx, 3)
	if err != nil {
		t.Fatalf("GetFailedForRetry: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected exactly one due retry, got %d", len(due))
	}
	if due[0].Attr("retryCount") != "1" {
		t.Fatalf("expected retryCount=1, got %q", due[0].Attr("retryCount"))
	}

	// Draining again immediately returns nothing: the entry was removed.
	due, err = s.GetFailedForRetry(ctx, 3)
	if err != nil || len(due) != 0 {
		t.Fatalf("expected drained queue, got due=%v err=%v", due, err)
	}

	// A request already at maxRetries is dropped rather than returned.
	exhausted := types.CrawlRequest{URL: "https://exhausted.example/", Attrs: map[string]string{"retryCount": "3"}}
	s.SaveResult(ctx, types.CrawlResult{Request: exhausted, Status: types.StatusFailed})
	s.retryMu.Lock()
	for i := range s.retries {
		s.retries[i].notBefore = time.Now().Add(-time.Second)
	}
	s.retryMu.Unlock()

	due, err = s.GetFailedForRetry(ctx, 3)
	if err != nil || len(due) != 0 {
		t.Fatalf("expected a request at maxRetries to be dropped, got due=%v err=%v", due, err)
	}
}

func TestMemorySinkRetryQueueSkipsNonRetryableStatuses(t *testing.T) {
	s := NewMemorySink(0)
	ctx := context.Background()

	s.SaveResult(ctx, types.CrawlResult{
		Request: types.CrawlRequest{URL: "https://blocked.example/"},
		Status:  types.StatusRobotsBlocked,
	})

	due, err := s.GetFailedForRetry(ctx, 3)
	if err != nil {
		t.Fatalf("GetFailedForRetry: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("robots-blocked results must not be retried, got %d", len(due))
	}
}

func TestBackoffIsFixedFiveMinutes(t *testing.T) {
	if got := backoff(0); got != 5*time.Minute {
		t.Fatalf("expected a fixed five-minute backoff, got %v", got)
	}
	if got := backoff(20); got != 5*time.Minute {
		t.Fatalf("expected backoff to stay fixed regardless of retry count, got %v", got)
	}
}

func TestMemorySinkEvictsOldestOnCapacity(t *testing.T) {
	s := NewMemorySink(2)
	ctx := context.Background()

	s.SaveResult(ctx, types.CrawlResult{Request: types.CrawlRequest{URL: "https://a.example/"}, Status: types.StatusSuccess})
	time.Sleep(5 * time.Millisecond)
	s.SaveResult(ctx, types.CrawlResult{Request: types.CrawlRequest{URL: "https://b.example/"}, Status: types.StatusSuccess})
	time.Sleep(5 * time.Millisecond)
	s.SaveResult(ctx, types.CrawlResult{Request: types.CrawlRequest{URL: "https://c.example/"}, Status: types.StatusSuccess})

	if _, ok, _ := s.FindByURL(ctx, "https://a.example/"); ok {
		t.Fatal("expected the oldest entry to have been evicted")
	}
	if _, ok, _ := s.FindByURL(ctx, "https://c.example/"); !ok {
		t.Fatal("expected the newest entry to still be present")
	}
}
