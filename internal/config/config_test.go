package config

import (
	"strings"
	"testing"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

const sampleYAML = `
name: demo
crawl:
  user_agent: DemoBot/1.0
sources:
  - name: blog
    seeds: ["https://example.com/"]
    max_depth: 2
    priority: high
    rules:
      - name: headline
        selector: { css: "h1" }
        type: text
        post:
          - kind: trim
sink:
  driver: memory
`

func TestLoadFromReaderAppliesDefaultsAndDecodes(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Engine.MaxConcurrency != 50 {
		t.Fatalf("expected default max_concurrency 50, got %d", cfg.Engine.MaxConcurrency)
	}
	if cfg.Crawl.UserAgent != "DemoBot/1.0" {
		t.Fatalf("expected decoded user agent, got %q", cfg.Crawl.UserAgent)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "blog" {
		t.Fatalf("got sources %+v", cfg.Sources)
	}
}

func TestValidateRejectsMissingUserAgent(t *testing.T) {
	cfg := Default()
	cfg.Sources = []SourceConfig{{Name: "blog", Seeds: []string{"https://example.com/"}}}
	cfg.Crawl.UserAgent = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing user agent")
	}
}

func TestLoadFromReaderRejectsSourceWithNoSeeds(t *testing.T) {
	bad := `
crawl:
  user_agent: DemoBot/1.0
sources:
  - name: blog
    seeds: []
`
	if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for a source with no seeds")
	}
}

func TestLoadFromReaderRejectsPostgresWithoutDSN(t *testing.T) {
	bad := `
crawl:
  user_agent: DemoBot/1.0
sources:
  - name: blog
    seeds: ["https://example.com/"]
sink:
  driver: postgres
`
	if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for postgres sink without a dsn")
	}
}

func TestCrawlerConfigExpandsSourcesAndRules(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	cc := cfg.CrawlerConfig()
	if len(cc.Sources) != 1 {
		t.Fatalf("expected one source, got %d", len(cc.Sources))
	}
	src := cc.Sources[0]
	if src.Priority != types.PriorityHigh {
		t.Fatalf("expected priority HIGH, got %v", src.Priority)
	}
	if len(src.Rules) != 1 || src.Rules[0].Name != "headline" {
		t.Fatalf("got rules %+v", src.Rules)
	}
	if !src.Rules[0].Selector.IsCSS() || src.Rules[0].Selector.Query() != "h1" {
		t.Fatalf("expected css selector h1, got %+v", src.Rules[0].Selector)
	}
	if len(src.Rules[0].Post) != 1 || !src.Rules[0].Post[0].IsTrim() {
		t.Fatalf("expected a single trim post-processor, got %+v", src.Rules[0].Post)
	}
}

func TestBuildSinkSelectsMemoryByDefault(t *testing.T) {
	cfg := Default()
	s, err := cfg.BuildSink()
	if err != nil {
		t.Fatalf("BuildSink: %v", err)
	}
	if s == nil {
		t.Fatal("expected a non-nil sink for the default memory driver")
	}
}

func TestBuildLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := buildLogger(LoggingConfig{Level: "verbose"})
	if err == nil {
		t.Fatal("expected an error for an unrecognised log level")
	}
}

func TestBuildLoggerAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		if _, err := buildLogger(LoggingConfig{Level: level, Structured: true}); err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
	}
}
