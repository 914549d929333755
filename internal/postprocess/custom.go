package postprocess

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// CustomFunc is a registered Custom post-processor function: given the
// current string and the processor's config map, it returns the next
// string.
type CustomFunc func(s string, cfg map[string]string) string

var (
	registryMu sync.RWMutex
	registry   = map[string]CustomFunc{
		"clean_url":            cleanURL,
		"normalize_text":       normalizeText,
		"extract_number":       extractNumber,
		"strip_html":           stripHTML,
		"normalize_whitespace": normalizeWhitespace,
	}
)

// Register adds or overrides a named custom processor. Built-ins can be
// shadowed by a caller-registered function of the same name.
func Register(id string, fn CustomFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = fn
}

// Lookup returns the registered function for id, if any.
func Lookup(id string) (CustomFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[id]
	return fn, ok
}

// cleanURL strips every query parameter except the ones named in the
// comma-separated cfg["keep"] list.
func cleanURL(s string, cfg map[string]string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	keep := map[string]struct{}{}
	for _, k := range strings.Split(cfg["keep"], ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keep[k] = struct{}{}
		}
	}
	if len(keep) == 0 {
		u.RawQuery = ""
		return u.String()
	}
	q := u.Query()
	for key := range q {
		if _, ok := keep[key]; !ok {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var smartPunctuation = map[string]string{
	"‘": "'", "’": "'",
	"“": "\"", "”": "\"",
	"…": "...",
}

// normalizeText collapses whitespace (grounded on the teacher's
// normalizeWhitespace helper in internal/processor/processor.go) and
// folds smart quotes/ellipsis to their ASCII equivalents.
func normalizeText(s string, _ map[string]string) string {
	for from, to := range smartPunctuation {
		s = strings.ReplaceAll(s, from, to)
	}
	return normalizeWhitespace(s, nil)
}

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// extractNumber returns the first regex match of \d+(\.\d+)? by
// default, or of cfg["pattern"] when set.
func extractNumber(s string, cfg map[string]string) string {
	re := numberPattern
	if p := cfg["pattern"]; p != "" {
		compiled, err := regexp.Compile(p)
		if err == nil {
			re = compiled
		}
	}
	return re.FindString(s)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string, _ map[string]string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// normalizeWhitespace collapses runs of whitespace to single spaces,
// grounded on the teacher's internal/processor/processor.go helper of
// the same name.
func normalizeWhitespace(s string, _ map[string]string) string {
	return strings.Join(strings.Fields(s), " ")
}
