package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestComputeWaitZeroBeforeFirstCrawl(t *testing.T) {
	l := New(200*time.Millisecond, nil, "KrawlerBot", BurstLimit{})
	if w := l.ComputeWait(context.Background(), "a.test"); w != 0 {
		t.Fatalf("got %v, want 0 before any crawl is noted", w)
	}
}

func TestComputeWaitAfterNoteCrawl(t *testing.T) {
	l := New(200*time.Millisecond, nil, "KrawlerBot", BurstLimit{})
	l.NoteCrawl("a.test")
	w := l.ComputeWait(context.Background(), "a.test")
	if w <= 0 || w > 200*time.Millisecond {
		t.Fatalf("got %v, want a wait in (0, 200ms]", w)
	}
}

func TestComputeWaitUsesRobotsLookup(t *testing.T) {
	lookup := func(ctx context.Context, host, ua string) (time.Duration, bool, error) {
		return 50 * time.Millisecond, true, nil
	}
	l := New(1000*time.Millisecond, lookup, "KrawlerBot", BurstLimit{})
	l.NoteCrawl("a.test")
	w := l.ComputeWait(context.Background(), "a.test")
	if w > 50*time.Millisecond {
		t.Fatalf("got %v, want robots crawl-delay (50ms) to override base delay", w)
	}
}

func TestNoteCrawlIsPerHost(t *testing.T) {
	l := New(500*time.Millisecond, nil, "KrawlerBot", BurstLimit{})
	l.NoteCrawl("a.test")
	if w := l.ComputeWait(context.Background(), "b.test"); w != 0 {
		t.Fatalf("got %v, want 0 for an unrelated host", w)
	}
}
