// Package ratelimit enforces the per-domain politeness floor from
// spec.md §4.6: at least crawlDelay milliseconds between the
// completion of one crawl on a host and the start of the next.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultDelay is used when the robots service has no crawl-delay for a
// host and none is configured, per spec.md §4.6.
const defaultDelay = 1000 * time.Millisecond

// CrawlDelayLookup asks an external robots service for a host's
// crawl-delay, matching internal/robots.Service.GetCrawlDelay's shape.
type CrawlDelayLookup func(ctx context.Context, host, userAgent string) (time.Duration, bool, error)

// BurstLimit configures the optional extra throughput guard layered on
// top of the politeness floor: up to Requests crawls per Window,
// carried forward from the teacher's domain_limiter.go as an
// enrichment spec.md's letter never forbids.
type BurstLimit struct {
	Requests int
	Window   time.Duration
}

// Limiter is the per-domain rate limiter: a concurrent host ->
// lastCrawlMillis map, a cached host -> robotsDelayMs map, and an
// optional golang.org/x/time/rate burst cap per host.
//
// Grounded on the teacher's internal/crawler/domain_limiter.go, which
// already combines a per-host last-crawl-time map with an optional
// rate.Limiter burst cap.
type Limiter struct {
	baseDelay time.Duration
	lookup    CrawlDelayLookup
	userAgent string

	burst       BurstLimit
	burstActive bool

	mu          sync.Mutex
	lastCrawl   map[string]time.Time
	robotsDelay map[string]time.Duration
	burstLims   map[string]*rate.Limiter
}

// New constructs a Limiter. baseDelay is the politeness floor applied
// when no robots crawl-delay is known; lookup may be nil, in which case
// computeWait always falls back to baseDelay (or 1000ms if that is
// also zero, per spec.md §4.6's "default 1000 ms on failure").
func New(baseDelay time.Duration, lookup CrawlDelayLookup, userAgent string, burst BurstLimit) *Limiter {
	l := &Limiter{
		baseDelay:   baseDelay,
		lookup:      lookup,
		userAgent:   userAgent,
		burst:       burst,
		lastCrawl:   make(map[string]time.Time),
		robotsDelay: make(map[string]time.Duration),
	}
	if burst.Requests > 0 && burst.Window > 0 {
		l.burstActive = true
		l.burstLims = make(map[string]*rate.Limiter)
	}
	return l
}

// ComputeWait implements computeWait for an already-extracted host:
// resolve the host's crawl-delay floor (cached, else asked of the
// robots service, else baseDelay or defaultDelay), and return
// max(0, delay - (now - lastCrawl)), or 0 for a host never crawled.
func (l *Limiter) ComputeWait(ctx context.Context, host string) time.Duration {
	host = strings.ToLower(host)
	delay := l.delayFor(ctx, host)

	l.mu.Lock()
	last, seen := l.lastCrawl[host]
	l.mu.Unlock()
	if !seen {
		return 0
	}

	wait := delay - time.Since(last)
	if wait < 0 {
		return 0
	}
	return wait
}

// WaitFor blocks for ComputeWait's result, and for the optional burst
// limiter when configured, then the caller must call NoteCrawl.
func (l *Limiter) WaitFor(ctx context.Context, host string) error {
	host = strings.ToLower(host)

	wait := l.ComputeWait(ctx, host)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if l.burstActive {
		l.mu.Lock()
		limiter := l.ensureBurstLimiterLocked(host)
		l.mu.Unlock()
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// NoteCrawl implements noteCrawl(host): writes now unconditionally,
// even when the crawl that preceded it failed.
func (l *Limiter) NoteCrawl(host string) {
	host = strings.ToLower(host)
	l.mu.Lock()
	l.lastCrawl[host] = time.Now()
	l.mu.Unlock()
}

func (l *Limiter) delayFor(ctx context.Context, host string) time.Duration {
	l.mu.Lock()
	cached, ok := l.robotsDelay[host]
	l.mu.Unlock()
	if ok {
		return cached
	}

	delay := l.baseDelay
	if delay <= 0 {
		delay = defaultDelay
	}
	if l.lookup != nil {
		if d, found, err := l.lookup(ctx, host, l.userAgent); err == nil && found && d > 0 {
			delay = d
		}
	}

	l.mu.Lock()
	l.robotsDelay[host] = delay
	l.mu.Unlock()
	return delay
}

func (l *Limiter) ensureBurstLimiterLocked(host string) *rate.Limiter {
	limiter, ok := l.burstLims[host]
	if ok {
		return limiter
	}
	interval := l.burst.Window / time.Duration(l.burst.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	burstSize := l.burst.Requests
	if burstSize <= 0 {
		burstSize = 1
	}
	limiter = rate.NewLimiter(rate.Every(interval), burstSize)
	l.burstLims[host] = limiter
	return limiter
}
