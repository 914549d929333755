package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DreamForgeSolutions/Krawler/internal/fetcher"
	"github.com/DreamForgeSolutions/Krawler/internal/pipeline"
	"github.com/DreamForgeSolutions/Krawler/internal/sink"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func testPipeline(srv *httptest.Server) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Fetcher: fetcher.New(fetcher.Options{}),
		Sink:    sink.NewMemorySink(0),
	}
}

func noRobotsPolicy() types.CrawlPolicy {
	p := types.DefaultCrawlPolicy()
	p.RespectRobotsTxt = false
	return p
}

func TestEngineStartSubmitStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	e := New(types.CrawlerConfig{MaxConcurrency: 2, QueueCapacity: 10, ResultBufferSize: 10}, testPipeline(srv), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := e.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Submit(context.Background(), types.CrawlRequest{URL: srv.URL + "/", Policy: noRobotsPolicy()}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case result := <-results:
		if result.Status != types.StatusSuccess {
			t.Fatalf("got status %v, error %q", result.Status, result.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	stats := e.Stats()
	if !stats.Running || stats.Processed != 1 || stats.Successes != 1 {
		t.Fatalf("got stats %+v", stats)
	}

	e.Stop()

	if _, ok := <-results; ok {
		t.Fatal("expected result channel to be closed after Stop")
	}
	if e.Stats().Running {
		t.Fatal("expected Running=false after Stop")
	}
}

func TestEngineStartTwiceFails(t *testing.T) {
	e := New(types.CrawlerConfig{}, &pipeline.Pipeline{}, nil)
	ctx := context.Background()
	if _, err := e.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer e.Stop()

	if _, err := e.Start(ctx); err != types.ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestEngineSubmitBeforeStartFails(t *testing.T) {
	e := New(types.CrawlerConfig{}, &pipeline.Pipeline{}, nil)
	if err := e.Submit(context.Background(), types.CrawlRequest{URL: "https://example.com"}); err != types.ErrNotRunning {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestEngineSubmitGeneratesChildResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/" {
			w.Write([]byte(`<html><body><a href="/child">child</a></body></html>`))
			return
		}
		w.Write([]byte("<html><body>leaf</body></html>"))
	}))
	defer srv.Close()

	e := New(types.CrawlerConfig{MaxConcurrency: 2, QueueCapacity: 10, ResultBufferSize: 10}, testPipeline(srv), nil)
	results, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	req := types.CrawlRequest{URL: srv.URL + "/", Depth: 0, MaxDepth: 1, Policy: noRobotsPolicy()}
	if err := e.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	seen := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case result := <-results:
			seen[result.Request.URL] = true
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
}
