package types

import (
	"strings"
	"time"
)

// CrawlPolicy controls how a single request is fetched and gated.
type CrawlPolicy struct {
	RespectRobotsTxt    bool
	DelayMs             int64
	MaxRetries          int
	RequestTimeoutMs    int64
	UserAgent           string
	MaxContentLength    int64
	AllowedContentTypes []string
	Headers             map[string]string
	FollowRedirects     bool
	MaxRedirects        int
}

// DefaultCrawlPolicy mirrors spec.md §3's stated defaults.
func DefaultCrawlPolicy() CrawlPolicy {
	return CrawlPolicy{
		RespectRobotsTxt:    true,
		DelayMs:             1000,
		MaxRetries:          3,
		RequestTimeoutMs:    30_000,
		UserAgent:           "KrawlerBot/1.0",
		MaxContentLength:    10 * 1024 * 1024,
		AllowedContentTypes: []string{"text/html", "application/xhtml+xml"},
		FollowRedirects:     true,
		MaxRedirects:        5,
	}
}

// Delay returns DelayMs as a time.Duration.
func (p CrawlPolicy) Delay() time.Duration {
	return time.Duration(p.DelayMs) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMs as a time.Duration.
func (p CrawlPolicy) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutMs) * time.Millisecond
}

// AllowsContentType reports whether ct contains one of the allowed
// substrings, case-insensitively. An empty ct always passes (spec.md
// §4.2 step 4: "If empty string → accept (warn)").
func (p CrawlPolicy) AllowsContentType(ct string) bool {
	if ct == "" {
		return true
	}
	lower := strings.ToLower(ct)
	for _, allowed := range p.AllowedContentTypes {
		if allowed == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}
