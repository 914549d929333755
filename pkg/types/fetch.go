package types

import "context"

// FetchResult is the HTTP fetcher contract from spec.md §6: url,
// optional statusCode/body, headers normalised to lower-cased names,
// a success flag, and an optional error string.
type FetchResult struct {
	URL          string
	StatusCode   int
	Body         []byte
	Headers      map[string][]string // lower-cased header names
	IsSuccessful bool
	Error        string
}

// Fetcher is the external collaborator the pipeline calls to download a
// request's URL. Implementations must follow redirects transparently up
// to the policy's limit and normalise response header names to lower
// case before returning.
type Fetcher interface {
	Fetch(ctx context.Context, req CrawlRequest) (FetchResult, error)
}
