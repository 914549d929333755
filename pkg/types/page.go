package types

import "time"

// ImageRef is one image record discovered on a page.
type ImageRef struct {
	URL    string
	Alt    string
	Width  int // 0 when unknown
	Height int // 0 when unknown
}

// PageMetadata carries the response-level facts gathered during fetch and
// parse, independent of any extraction rule.
type PageMetadata struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
	Headers       map[string][]string // lower-cased header names
	Charset       string
	Language      string
}

// WebPage is the parsed, extracted result of a single successful fetch.
// A result owns its page; pages never point back at a CrawlResult, so the
// two never form a cycle.
type WebPage struct {
	URL         string
	Title       string
	RawContent  string
	Fields      map[string]ExtractedValue
	Links       []string // deduped, absolute
	Images      []ImageRef
	Metadata    PageMetadata
	CompletedAt time.Time

	// CrawlRequestID, Depth and Source thread the triggering request's
	// identity through to the page; the pipeline fills all three.
	CrawlRequestID string
	Depth          int
	Source         string
}
