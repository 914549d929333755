package types

// SourceConfig is one seed source within a CrawlerConfig: a set of seed
// URLs that share a max depth, priority, and optional overrides of the
// global policy and extraction rules. Requests derived from a source
// carry the source name under Attrs["source"].
type SourceConfig struct {
	Name     string
	SeedURLs []string
	MaxDepth int
	Priority Priority
	Policy   *CrawlPolicy     // nil: inherit CrawlerConfig.Policy
	Rules    []ExtractionRule // empty: inherit CrawlerConfig.Rules
}

// CrawlerConfig is the flat, caller-supplied configuration for an engine
// run: a name, concurrency and queueing knobs, a base policy and rule
// set, and the list of sources that expand into seed requests.
type CrawlerConfig struct {
	Name                     string
	MaxConcurrency           int
	QueueCapacity            int
	ResultBufferSize         int
	ProgressReportIntervalMs int64
	DefaultDelayMs           int64
	MaxRetries               int

	Policy  CrawlPolicy
	Rules   []ExtractionRule
	Sources []SourceConfig
}

// DefaultCrawlerConfig mirrors the engine construction defaults in
// spec.md §4.1: maxConcurrency=50, queueCapacity=10000,
// resultBufferSize=1000, progressReportIntervalMs=5000.
func DefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		MaxConcurrency:           50,
		QueueCapacity:            10_000,
		ResultBufferSize:         1_000,
		ProgressReportIntervalMs: 5_000,
		DefaultDelayMs:           1_000,
		MaxRetries:               3,
		Policy:                   DefaultCrawlPolicy(),
	}
}

// SeedRequests expands every source into one CrawlRequest per seed URL,
// inheriting the source's policy/rules when set, else the config's base
// policy/rules, and stamping Attrs["source"] with the source name.
func (c CrawlerConfig) SeedRequests(idFor func(sourceName, url string) string) []CrawlRequest {
	var out []CrawlRequest
	for _, src := range c.Sources {
		policy := c.Policy
		if src.Policy != nil {
			policy = *src.Policy
		}
		rules := c.Rules
		if len(src.Rules) > 0 {
			rules = src.Rules
		}
		for _, seed := range src.SeedURLs {
			out = append(out, CrawlRequest{
				ID:       idFor(src.Name, seed),
				URL:      seed,
				Depth:    0,
				MaxDepth: src.MaxDepth,
				Rules:    rules,
				Policy:   policy,
				Priority: src.Priority,
				Attrs:    map[string]string{"source": src.Name},
			})
		}
	}
	return out
}
