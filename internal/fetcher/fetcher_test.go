package fetcher

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>hi</html>"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "KrawlerBot/1.0"})
	result, err := f.Fetch(context.Background(), types.CrawlRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.IsSuccessful || result.StatusCode != 200 {
		t.Fatalf("got %+v", result)
	}
	if string(result.Body) != "<html>hi</html>" {
		t.Fatalf("got body %q", result.Body)
	}
	if result.Headers["content-type"] == nil {
		t.Fatalf("expected lower-cased header names, got %v", result.Headers)
	}
}

func TestFetchDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("hello gzip"))
		gz.Close()
	}))
	defer srv.Close()

	f := New(Options{})
	result, err := f.Fetch(context.Background(), types.CrawlRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(result.Body) != "hello gzip" {
		t.Fatalf("got body %q", result.Body)
	}
}

func TestFetchNetworkErrorReportsFailure(t *testing.T) {
	f := New(Options{})
	result, err := f.Fetch(context.Background(), types.CrawlRequest{URL: "http://127.0.0.1:1/unreachable"})
	if err != nil {
		t.Fatalf("network failures must surface as IsSuccessful=false, not an error: %v", err)
	}
	if result.IsSuccessful || result.Error == "" {
		t.Fatalf("got %+v", result)
	}
}

func TestFetchSizeLimitExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	f := New(Options{MaxBodyBytes: 10})
	result, err := f.Fetch(context.Background(), types.CrawlRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.IsSuccessful || result.Error == "" {
		t.Fatalf("expected a size-limit failure, got %+v", result)
	}
}
