// Package pipeline implements the single-request page pipeline: the
// fixed ten-step sequence from dedup check through persistence that the
// engine's worker loop runs for every CrawlRequest.
//
// Grounded on the teacher's internal/crawler/crawler.go handleRequest
// (dedup → robots → limiter → fetch → process → link-extract → child
// generation → persist), split into named steps so each short-circuit
// status is an explicit early return.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/DreamForgeSolutions/Krawler/internal/extract"
	"github.com/DreamForgeSolutions/Krawler/internal/ratelimit"
	"github.com/DreamForgeSolutions/Krawler/internal/robots"
	"github.com/DreamForgeSolutions/Krawler/internal/sink"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// dedupWindowMinutes is the "recently crawled" window from spec.md §4.2
// step 1.
const dedupWindowMinutes = 60

// maxChildrenPerRequest caps step 8's child-request generation, per
// spec.md §4.2.
const maxChildrenPerRequest = 100

// Pipeline executes a single CrawlRequest through the ten-step sequence
// spec.md §4.2 describes. It owns no goroutines of its own; the engine's
// worker loop calls Execute once per request.
type Pipeline struct {
	Fetcher types.Fetcher
	Sink    sink.ResultSink
	Robots  *robots.Service
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Execute runs the pipeline for req and returns its terminal result.
// Every exit path, including the early short-circuits, is a fully
// populated CrawlResult; Execute never returns an error itself. A panic
// in any step is recovered and reported as a FAILED result.
func (p *Pipeline) Execute(ctx context.Context, req types.CrawlRequest) (result types.CrawlResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = p.terminal(req, start, types.StatusFailed, fmt.Sprintf("pipeline panic: %v", r))
		}
	}()

	// Step 1: dedup check.
	if recently, err := p.Sink.WasRecentlyCrawled(ctx, req.URL, dedupWindowMinutes); err != nil {
		p.logf("dedup check failed", "url", req.URL, "error", err)
	} else if recently {
		return p.terminal(req, start, types.StatusSkipped, "Recently crawled")
	}

	target, err := req.ParsedURL()
	if err != nil {
		return p.terminal(req, start, types.StatusFailed, err.Error())
	}
	host := strings.ToLower(target.Hostname())

	// Step 2: robots check.
	if req.Policy.RespectRobotsTxt && p.Robots != nil {
		allowed, err := p.Robots.IsAllowed(ctx, req.URL, req.Policy.UserAgent)
		if err != nil {
			p.logf("robots check errored, failing open", "url", req.URL, "error", err)
		} else if !allowed {
			return p.terminal(req, start, types.StatusRobotsBlocked, "Disallowed by robots.txt")
		}
	}

	// Per-domain politeness wait, ahead of the fetch it protects.
	if p.Limiter != nil {
		if err := p.Limiter.WaitFor(ctx, host); err != nil {
			return p.terminal(req, start, types.StatusFailed, err.Error())
		}
	}

	// Step 3: fetch.
	downloadStart := time.Now()
	fetchResult, err := p.Fetcher.Fetch(ctx, req)
	downloadMs := time.Since(downloadStart).Milliseconds()
	if p.Limiter != nil {
		p.Limiter.NoteCrawl(host)
	}
	if err != nil {
		return p.terminalWithMetrics(req, start, types.StatusFailed, err.Error(), types.Metrics{DownloadMs: downloadMs})
	}
	if !fetchResult.IsSuccessful || len(fetchResult.Body) == 0 {
		status := types.StatusFailed
		if isNetworkError(fetchResult.Error) {
			status = types.StatusNetworkError
		}
		errMsg := fetchResult.Error
		if errMsg == "" {
			errMsg = "empty response body"
		}
		return p.terminalWithMetrics(req, start, status, errMsg, types.Metrics{DownloadMs: downloadMs, ContentBytes: int64(len(fetchResult.Body))})
	}

	// Step 4: content-type gate.
	contentType := firstHeader(fetchResult.Headers, "content-type")
	if !req.Policy.AllowsContentType(contentType) {
		return p.terminalWithMetrics(req, start, types.StatusUnsupportedContentType,
			"content-type "+contentType+" not in allowed list",
			types.Metrics{DownloadMs: downloadMs, ContentBytes: int64(len(fetchResult.Body))})
	}

	// Step 5: size gate.
	bodyLen := int64(len(fetchResult.Body))
	if req.Policy.MaxContentLength > 0 && bodyLen > req.Policy.MaxContentLength {
		return p.terminalWithMetrics(req, start, types.StatusContentTooLarge,
			"response body exceeds max content length",
			types.Metrics{DownloadMs: downloadMs, ContentBytes: bodyLen})
	}

	// Step 6: extraction.
	extractStart := time.Now()
	fields := extract.Extract(p.Logger, fetchResult.Body, contentType, req.Rules, target)
	extractionMs := time.Since(extractStart).Milliseconds()

	// Step 7: link/image/meta extraction.
	var links []string
	var images []types.ImageRef
	meta := map[string]string{}
	if strings.Contains(strings.ToLower(contentType), "html") {
		if doc, err := extract.ParseHTML(fetchResult.Body); err != nil {
			p.logf("side-extraction parse failed", "url", req.URL, "error", err)
		} else {
			links = extract.Links(doc, target)
			images = extract.Images(doc, target)
			meta = extract.Metadata(doc)
		}
	}

	page := &types.WebPage{
		URL:        req.URL,
		Title:      meta["title"],
		RawContent: string(fetchResult.Body),
		Fields:     fields,
		Links:      links,
		Images:     images,
		Metadata: types.PageMetadata{
			StatusCode:    fetchResult.StatusCode,
			ContentType:   contentType,
			ContentLength: bodyLen,
			Headers:       fetchResult.Headers,
			Charset:       meta["charset"],
			Language:      meta["language"],
		},
		CompletedAt:    time.Now(),
		CrawlRequestID: req.ID,
		Depth:          req.Depth,
		Source:         req.Attr("source"),
	}

	// Step 8: child-request generation.
	var children []types.CrawlRequest
	if req.Depth < req.MaxDepth {
		children = p.childRequests(req, target, host, links)
	}

	metrics := types.Metrics{
		DownloadMs:          downloadMs,
		ExtractionMs:        extractionMs,
		TotalMs:             time.Since(start).Milliseconds(),
		ContentBytes:        bodyLen,
		ExtractedFieldCount: len(fields),
	}

	result = types.CrawlResult{
		Request:   req,
		Page:      page,
		Status:    types.StatusSuccess,
		Children:  children,
		Timestamp: time.Now(),
		Metrics:   metrics,
	}

	// Step 9: persist.
	if err := p.Sink.SaveResult(ctx, result); err != nil {
		p.logf("save result failed", "url", req.URL, "error", err)
	}
	if err := p.Sink.SaveWebPage(ctx, *page); err != nil {
		p.logf("save web page failed", "url", req.URL, "error", err)
	}

	// Step 10.
	return result
}

// childRequests implements spec.md §4.2 step 8: keep links that are
// valid HTTP(S) and share the parent's host (exact lower-case match),
// take at most 100, derive a child per survivor.
func (p *Pipeline) childRequests(req types.CrawlRequest, parentURL *url.URL, host string, links []string) []types.CrawlRequest {
	now := time.Now()
	var out []types.CrawlRequest
	for _, link := range links {
		if len(out) >= maxChildrenPerRequest {
			break
		}
		u, err := url.Parse(link)
		if err != nil || !u.IsAbs() {
			continue
		}
		if strings.ToLower(u.Hostname()) != host {
			continue
		}
		out = append(out, req.Child(types.NewRequestID(), link, now))
	}
	return out
}

func (p *Pipeline) terminal(req types.CrawlRequest, start time.Time, status types.CrawlStatus, errMsg string) types.CrawlResult {
	return p.terminalWithMetrics(req, start, status, errMsg, types.Metrics{})
}

func (p *Pipeline) terminalWithMetrics(req types.CrawlRequest, start time.Time, status types.CrawlStatus, errMsg string, metrics types.Metrics) types.CrawlResult {
	metrics.TotalMs = time.Since(start).Milliseconds()
	result := types.CrawlResult{
		Request:   req,
		Status:    status,
		Error:     errMsg,
		Timestamp: time.Now(),
		Metrics:   metrics,
	}
	if err := p.Sink.SaveResult(context.Background(), result); err != nil {
		p.logf("save result failed", "url", req.URL, "error", err)
	}
	return result
}

func (p *Pipeline) logf(msg string, args ...any) {
	if p.Logger != nil {
		p.Logger.Warn(msg, args...)
	}
}

func firstHeader(headers map[string][]string, name string) string {
	values := headers[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func isNetworkError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "connection") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "dial")
}
