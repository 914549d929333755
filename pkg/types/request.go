package types

import (
	"net/url"
	"time"
)

// CrawlRequest is a single work item submitted to the engine's frontier.
// Requests are immutable once submitted; a child request is always a copy
// of its parent with URL, Depth, ParentID, ID and CreatedAt overridden.
type CrawlRequest struct {
	ID        string
	URL       string
	Depth     int
	MaxDepth  int
	Rules     []ExtractionRule
	Policy    CrawlPolicy
	Priority  Priority
	Attrs     map[string]string
	ParentID  string
	CreatedAt time.Time
}

// Attr reads a request attribute, returning "" when absent.
func (r CrawlRequest) Attr(key string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[key]
}

// RetryCount reads the "retryCount" attribute, defaulting to 0.
func (r CrawlRequest) RetryCount() int {
	v := r.Attr("retryCount")
	if v == "" {
		return 0
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// Child derives a new request from r for a discovered link, incrementing
// depth and stamping a fresh identity. The caller is responsible for
// checking depth/host/validity filters before calling Child.
func (r CrawlRequest) Child(id, childURL string, now time.Time) CrawlRequest {
	child := r
	child.ID = id
	child.URL = childURL
	child.Depth = r.Depth + 1
	child.ParentID = r.ID
	child.CreatedAt = now
	child.Attrs = copyAttrs(r.Attrs)
	return child
}

func copyAttrs(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ParsedURL parses r.URL, returning an error for anything that does not
// parse or is not absolute. The scheme is not checked.
func (r CrawlRequest) ParsedURL() (*url.URL, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, &url.Error{Op: "parse", URL: r.URL, Err: errNotAbsolute}
	}
	return u, nil
}

var errNotAbsolute = errNotAbsoluteErr("url is not absolute")

type errNotAbsoluteErr string

func (e errNotAbsoluteErr) Error() string { return string(e) }
