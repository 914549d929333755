package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DreamForgeSolutions/Krawler/internal/fetcher"
	"github.com/DreamForgeSolutions/Krawler/internal/sink"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func basePolicy() types.CrawlPolicy {
	p := types.DefaultCrawlPolicy()
	p.RespectRobotsTxt = false
	return p
}

func TestExecuteHappyPathExtractsAndGeneratesChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Home</title></head><body>
			<h1 class="headline">Welcome</h1>
			<a href="/about">About</a>
			<a href="/about">About again</a>
			<a href="https://external.example/other">External</a>
		</body></html>`))
	}))
	defer srv.Close()

	memSink := sink.NewMemorySink(0)
	p := &Pipeline{
		Fetcher: fetcher.New(fetcher.Options{UserAgent: "KrawlerBot/1.0"}),
		Sink:    memSink,
	}

	req := types.CrawlRequest{
		ID:       "r1",
		URL:      srv.URL + "/",
		Depth:    0,
		MaxDepth: 2,
		Policy:   basePolicy(),
		Rules: []types.ExtractionRule{
			{Name: "headline", Selector: types.NewCssSelector(".headline"), Type: types.ExtractText},
		},
	}

	result := p.Execute(context.Background(), req)
	if result.Status != types.StatusSuccess {
		t.Fatalf("got status %v, error %q", result.Status, result.Error)
	}
	if result.Page == nil {
		t.Fatalf("expected a page")
	}
	if got := result.Page.Fields["headline"]; !got.IsText() || got.TextValue() != "Welcome" {
		t.Fatalf("got headline field %+v", got)
	}
	// Links() dedupes "/about" (it appears twice) before the host filter
	// runs, and the external link is dropped for not sharing the host.
	if len(result.Children) != 1 {
		t.Fatalf("expected 1 same-host child, got %d: %+v", len(result.Children), result.Children)
	}

	found, ok, err := memSink.FindByURL(context.Background(), req.URL)
	if err != nil || !ok {
		t.Fatalf("expected persisted result, err=%v ok=%v", err, ok)
	}
	if found.Status != types.StatusSuccess {
		t.Fatalf("persisted status = %v", found.Status)
	}
}

func TestExecuteSkipsRecentlyCrawled(t *testing.T) {
	memSink := sink.NewMemorySink(0)
	memSink.SaveResult(context.Background(), types.CrawlResult{
		Request:   types.CrawlRequest{URL: "https://example.com/"},
		Status:    types.StatusSuccess,
		Timestamp: time.Now(),
	})

	p := &Pipeline{Fetcher: fetcher.New(fetcher.Options{}), Sink: memSink}
	result := p.Execute(context.Background(), types.CrawlRequest{URL: "https://example.com/", Policy: basePolicy()})
	if result.Status != types.StatusSkipped {
		t.Fatalf("got %v", result.Status)
	}
}

func TestExecuteRejectsUnsupportedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	p := &Pipeline{Fetcher: fetcher.New(fetcher.Options{}), Sink: sink.NewMemorySink(0)}
	result := p.Execute(context.Background(), types.CrawlRequest{URL: srv.URL, Policy: basePolicy()})
	if result.Status != types.StatusUnsupportedContentType {
		t.Fatalf("got %v", result.Status)
	}
}

func TestExecuteRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(make([]byte, 1000))
	}))
	defer srv.Close()

	policy := basePolicy()
	policy.MaxContentLength = 10

	p := &Pipeline{Fetcher: fetcher.New(fetcher.Options{}), Sink: sink.NewMemorySink(0)}
	result := p.Execute(context.Background(), types.CrawlRequest{URL: srv.URL, Policy: policy})
	if result.Status != types.StatusContentTooLarge {
		t.Fatalf("got %v", result.Status)
	}
}

func TestExecuteDoesNotExceedMaxDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/next">next</a></body></html>`))
	}))
	defer srv.Close()

	p := &Pipeline{Fetcher: fetcher.New(fetcher.Options{}), Sink: sink.NewMemorySink(0)}
	req := types.CrawlRequest{URL: srv.URL + "/", Depth: 2, MaxDepth: 2, Policy: basePolicy()}
	result := p.Execute(context.Background(), req)
	if result.Status != types.StatusSuccess {
		t.Fatalf("got %v", result.Status)
	}
	if len(result.Children) != 0 {
		t.Fatalf("expected no children at max depth, got %d", len(result.Children))
	}
}
