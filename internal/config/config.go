// Package config loads a YAML configuration file into the engine's
// runtime types: a types.CrawlerConfig, a chosen sink.ResultSink, and a
// structured logger.
//
// Grounded on the teacher's internal/config package layout (yaml.v3
// decode with KnownFields, a Default() baseline merged before decode,
// a post-decode Validate()) and on crawler.go's buildLogger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DreamForgeSolutions/Krawler/internal/fetcher"
	"github.com/DreamForgeSolutions/Krawler/internal/pipeline"
	"github.com/DreamForgeSolutions/Krawler/internal/ratelimit"
	"github.com/DreamForgeSolutions/Krawler/internal/robots"
	"github.com/DreamForgeSolutions/Krawler/internal/sink"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// Config is the on-disk shape of a Krawler run.
type Config struct {
	Name      string          `yaml:"name"`
	Engine    EngineConfig    `yaml:"engine"`
	Crawl     CrawlDefaults   `yaml:"crawl"`
	Sources   []SourceConfig  `yaml:"sources"`
	Robots    RobotsConfig    `yaml:"robots"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sink      SinkConfig      `yaml:"sink"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EngineConfig maps onto spec.md §4.1's construction parameters.
type EngineConfig struct {
	MaxConcurrency          int      `yaml:"max_concurrency"`
	QueueCapacity           int      `yaml:"queue_capacity"`
	ResultBufferSize        int      `yaml:"result_buffer_size"`
	ProgressReportInterval  Duration `yaml:"progress_report_interval"`
	MaxRetries              int      `yaml:"max_retries"`
}

// CrawlDefaults builds the base types.CrawlPolicy every source inherits
// unless it overrides it.
type CrawlDefaults struct {
	UserAgent           string            `yaml:"user_agent"`
	RespectRobotsTxt    bool              `yaml:"respect_robots_txt"`
	DefaultDelay        Duration          `yaml:"default_delay"`
	RequestTimeout      Duration          `yaml:"request_timeout"`
	MaxContentLength    int64             `yaml:"max_content_length"`
	AllowedContentTypes []string          `yaml:"allowed_content_types"`
	Headers             map[string]string `yaml:"headers"`
	FollowRedirects     bool              `yaml:"follow_redirects"`
	MaxRedirects        int               `yaml:"max_redirects"`
}

// SourceConfig is one seed source, mapping onto types.SourceConfig.
type SourceConfig struct {
	Name     string       `yaml:"name"`
	Seeds    []string     `yaml:"seeds"`
	MaxDepth int          `yaml:"max_depth"`
	Priority string       `yaml:"priority"`
	Rules    []RuleConfig `yaml:"rules"`
}

// RuleConfig is one ExtractionRule in its YAML shape.
type RuleConfig struct {
	Name      string             `yaml:"name"`
	Selector  SelectorConfig     `yaml:"selector"`
	Type      string             `yaml:"type"`
	Attribute string             `yaml:"attribute"`
	Required  bool               `yaml:"required"`
	Multiple  bool               `yaml:"multiple"`
	Post      []PostProcessConfig `yaml:"post"`
}

// SelectorConfig names exactly one selector kind; which field is set
// determines the Selector built from it.
type SelectorConfig struct {
	CSS      string `yaml:"css"`
	XPath    string `yaml:"xpath"`
	Regex    string `yaml:"regex"`
	Group    int    `yaml:"group"`
	JSONPath string `yaml:"json_path"`
}

// PostProcessConfig is one PostProcessor in its YAML shape.
type PostProcessConfig struct {
	Kind        string            `yaml:"kind"`
	Pattern     string            `yaml:"pattern"`
	Replacement string            `yaml:"replacement"`
	Group       int               `yaml:"group"`
	Start       int               `yaml:"start"`
	End         int               `yaml:"end"`
	CustomID    string            `yaml:"custom_id"`
	CustomCfg   map[string]string `yaml:"custom_config"`
}

// RobotsConfig tunes the robots.txt cache.
type RobotsConfig struct {
	CacheCapacity int      `yaml:"cache_capacity"`
	CacheTTL      Duration `yaml:"cache_ttl"`
}

// RateLimitConfig configures the optional burst cap layered on the
// per-domain politeness floor.
type RateLimitConfig struct {
	BurstRequests int      `yaml:"burst_requests"`
	BurstWindow   Duration `yaml:"burst_window"`
}

// SinkConfig selects and configures the ResultSink implementation.
type SinkConfig struct {
	Driver      string `yaml:"driver"` // "memory" (default), "postgres", "sqlite"
	DSN         string `yaml:"dsn"`
	Path        string `yaml:"path"`
	MaxEntries  int    `yaml:"max_entries"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// LoggingConfig selects log verbosity and format, grounded on the
// teacher's config.LoggingConfig.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with spec.md §4.1's construction
// defaults and a sensible crawl policy.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			MaxConcurrency:         50,
			QueueCapacity:          10_000,
			ResultBufferSize:       1_000,
			ProgressReportInterval: DurationFrom(5 * time.Second),
			MaxRetries:             3,
		},
		Crawl: CrawlDefaults{
			UserAgent:           "KrawlerBot/1.0",
			RespectRobotsTxt:    true,
			DefaultDelay:        DurationFrom(1 * time.Second),
			RequestTimeout:      DurationFrom(30 * time.Second),
			MaxContentLength:    10 * 1024 * 1024,
			AllowedContentTypes: []string{"text/html", "application/xhtml+xml"},
			Headers:             map[string]string{},
			FollowRedirects:     true,
			MaxRedirects:        5,
		},
		Robots: RobotsConfig{
			CacheCapacity: 1000,
			CacheTTL:      DurationFrom(6 * time.Hour),
		},
		Sink: SinkConfig{
			Driver:     "memory",
			MaxEntries: 200_000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants the engine and pipeline assume hold.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("config: crawl.user_agent must be set")
	}
	if len(c.Sources) == 0 {
		return errors.New("config: at least one source must be configured")
	}
	for i, src := range c.Sources {
		if len(src.Seeds) == 0 {
			return fmt.Errorf("config: source %d (%s) has no seeds", i, src.Name)
		}
		if src.MaxDepth < 0 {
			return fmt.Errorf("config: source %s has invalid max_depth %d", src.Name, src.MaxDepth)
		}
		for _, rule := range src.Rules {
			if err := rule.validate(); err != nil {
				return fmt.Errorf("config: source %s: %w", src.Name, err)
			}
		}
	}
	if c.Engine.MaxConcurrency < 0 {
		return errors.New("config: engine.max_concurrency must be >= 0")
	}
	switch strings.ToLower(c.Sink.Driver) {
	case "", "memory":
	case "postgres":
		if strings.TrimSpace(c.Sink.DSN) == "" {
			return errors.New("config: sink.dsn is required for the postgres driver")
		}
	case "sqlite":
		if strings.TrimSpace(c.Sink.Path) == "" {
			return errors.New("config: sink.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unsupported sink.driver %q", c.Sink.Driver)
	}
	return nil
}

func (r RuleConfig) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule has no name")
	}
	set := 0
	for _, s := range []string{r.Selector.CSS, r.Selector.XPath, r.Selector.Regex, r.Selector.JSONPath} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("rule %s must set exactly one of selector.css/xpath/regex/json_path", r.Name)
	}
	return nil
}

// Policy builds the base types.CrawlPolicy shared by every source that
// does not override it.
func (c Config) Policy() types.CrawlPolicy {
	return types.CrawlPolicy{
		RespectRobotsTxt:    c.Crawl.RespectRobotsTxt,
		DelayMs:             c.Crawl.DefaultDelay.Duration.Milliseconds(),
		MaxRetries:          c.Engine.MaxRetries,
		RequestTimeoutMs:    c.Crawl.RequestTimeout.Duration.Milliseconds(),
		UserAgent:           c.Crawl.UserAgent,
		MaxContentLength:    c.Crawl.MaxContentLength,
		AllowedContentTypes: c.Crawl.AllowedContentTypes,
		Headers:             c.Crawl.Headers,
		FollowRedirects:     c.Crawl.FollowRedirects,
		MaxRedirects:        c.Crawl.MaxRedirects,
	}
}

// CrawlerConfig assembles the types.CrawlerConfig the engine consumes,
// expanding every configured source into its rule and policy set.
func (c Config) CrawlerConfig() types.CrawlerConfig {
	policy := c.Policy()
	sources := make([]types.SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		rules := make([]types.ExtractionRule, 0, len(src.Rules))
		for _, r := range src.Rules {
			rules = append(rules, r.toExtractionRule())
		}
		sources = append(sources, types.SourceConfig{
			Name:     src.Name,
			SeedURLs: src.Seeds,
			MaxDepth: src.MaxDepth,
			Priority: types.ParsePriority(strings.ToUpper(strings.TrimSpace(src.Priority))),
			Rules:    rules,
		})
	}

	return types.CrawlerConfig{
		Name:                     c.Name,
		MaxConcurrency:           c.Engine.MaxConcurrency,
		QueueCapacity:            c.Engine.QueueCapacity,
		ResultBufferSize:         c.Engine.ResultBufferSize,
		ProgressReportIntervalMs: c.Engine.ProgressReportInterval.Duration.Milliseconds(),
		DefaultDelayMs:           c.Crawl.DefaultDelay.Duration.Milliseconds(),
		MaxRetries:               c.Engine.MaxRetries,
		Policy:                   policy,
		Sources:                  sources,
	}
}

func (r RuleConfig) toExtractionRule() types.ExtractionRule {
	var selector types.Selector
	switch {
	case r.Selector.CSS != "":
		selector = types.NewCssSelector(r.Selector.CSS)
	case r.Selector.XPath != "":
		selector = types.NewXPathSelector(r.Selector.XPath)
	case r.Selector.Regex != "":
		selector = types.NewRegexSelector(r.Selector.Regex, r.Selector.Group)
	case r.Selector.JSONPath != "":
		selector = types.NewJSONPathSelector(r.Selector.JSONPath)
	}

	post := make([]types.PostProcessor, 0, len(r.Post))
	for _, p := range r.Post {
		if pp, ok := p.toPostProcessor(); ok {
			post = append(post, pp)
		}
	}

	return types.ExtractionRule{
		Name:      r.Name,
		Selector:  selector,
		Type:      parseExtractionType(r.Type),
		Attribute: r.Attribute,
		Post:      post,
		Required:  r.Required,
		Multiple:  r.Multiple,
	}
}

func parseExtractionType(s string) types.ExtractionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return types.ExtractHTML
	case "attribute":
		return types.ExtractAttribute
	case "link":
		return types.ExtractLink
	case "image_src", "image":
		return types.ExtractImageSrc
	case "json":
		return types.ExtractJSON
	default:
		return types.ExtractText
	}
}

func (p PostProcessConfig) toPostProcessor() (types.PostProcessor, bool) {
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case "trim":
		return types.PPTrim(), true
	case "upper", "uppercase":
		return types.PPUpperCase(), true
	case "lower", "lowercase":
		return types.PPLowerCase(), true
	case "replace":
		return types.PPReplace(p.Pattern, p.Replacement), true
	case "extract":
		return types.PPExtract(p.Pattern, p.Group), true
	case "substring":
		return types.PPSubstring(p.Start, p.End), true
	case "custom":
		return types.PPCustom(p.CustomID, p.CustomCfg), true
	default:
		return types.PostProcessor{}, false
	}
}

// BuildSink constructs the configured ResultSink implementation.
func (c Config) BuildSink() (sink.ResultSink, error) {
	switch strings.ToLower(c.Sink.Driver) {
	case "", "memory":
		return sink.NewMemorySink(c.Sink.MaxEntries), nil
	case "postgres":
		return sink.NewPostgresSink(sink.PostgresOptions{DSN: c.Sink.DSN, AutoMigrate: c.Sink.AutoMigrate})
	case "sqlite":
		return sink.NewSQLiteSink(c.Sink.Path)
	default:
		return nil, fmt.Errorf("config: unsupported sink.driver %q", c.Sink.Driver)
	}
}

// BuildLogger constructs a *slog.Logger per the configured level and
// format, grounded on the teacher's crawler.go buildLogger.
func (c Config) BuildLogger() (*slog.Logger, error) {
	return buildLogger(c.Logging)
}

func buildLogger(cfg LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("config: unsupported logging.level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

// Runtime is the fully wired set of components a loaded Config produces:
// a types.CrawlerConfig ready for engine.New, the pipeline that backs
// it, the sink it persists through, and the logger it shares.
type Runtime struct {
	CrawlerConfig types.CrawlerConfig
	Pipeline      *pipeline.Pipeline
	Sink          sink.ResultSink
	Logger        *slog.Logger
}

// Build wires a loaded Config into a Runtime: an HTTP fetcher, a robots
// service backed by that fetcher's client, a per-domain rate limiter
// consulting the robots service for Crawl-delay, the configured sink,
// and the page pipeline tying them together.
func (c Config) Build() (*Runtime, error) {
	logger, err := c.BuildLogger()
	if err != nil {
		return nil, err
	}

	resultSink, err := c.BuildSink()
	if err != nil {
		return nil, err
	}

	// The fetcher's own cap must leave headroom over the policy's
	// MaxContentLength: the fetcher errors out (StatusFailed) once a body
	// exceeds its cap, but an oversized body is supposed to reach the
	// pipeline's own step-5 size gate and come back CONTENT_TOO_LARGE.
	// Capping the fetcher at exactly the policy limit would make that gate
	// unreachable, so the fetcher is given a generous multiple of it as a
	// hard safety ceiling instead.
	fetcherCap := c.Crawl.MaxContentLength
	if fetcherCap > 0 {
		fetcherCap *= 4
	}
	f := fetcher.New(fetcher.Options{
		UserAgent:    c.Crawl.UserAgent,
		Headers:      c.Crawl.Headers,
		Timeout:      c.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: fetcherCap,
		MaxRedirects: c.Crawl.MaxRedirects,
	})

	robotsSvc := robots.New(&http.Client{Timeout: c.Crawl.RequestTimeout.Duration}, c.Crawl.UserAgent, c.Robots.CacheCapacity, c.Robots.CacheTTL.Duration)

	limiter := ratelimit.New(c.Crawl.DefaultDelay.Duration, robotsSvc.GetCrawlDelay, c.Crawl.UserAgent, ratelimit.BurstLimit{
		Requests: c.RateLimit.BurstRequests,
		Window:   c.RateLimit.BurstWindow.Duration,
	})

	pl := &pipeline.Pipeline{
		Fetcher: f,
		Sink:    resultSink,
		Robots:  robotsSvc,
		Limiter: limiter,
		Logger:  logger,
	}

	return &Runtime{
		CrawlerConfig: c.CrawlerConfig(),
		Pipeline:      pl,
		Sink:          resultSink,
		Logger:        logger,
	}, nil
}
