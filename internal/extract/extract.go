// Package extract implements the structured extraction engine: routing
// a fetched body by content type to the CSS, XPath, regex or JSONPath
// selector that backs each extraction rule, and the link/image/metadata
// side-extractions the page pipeline needs independent of any rule.
package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// Extract implements extractData(content, contentType, rules, baseUrl)
// from spec.md §4.3: it routes by a case-insensitive substring match on
// contentType, then dispatches each rule to the selector kind it names.
func Extract(logger *slog.Logger, content []byte, contentType string, rules []types.ExtractionRule, baseURL *url.URL) map[string]types.ExtractedValue {
	out := make(map[string]types.ExtractedValue, len(rules))
	lowerCT := strings.ToLower(contentType)

	switch {
	case strings.Contains(lowerCT, "html"):
		doc, err := parseHTML(content)
		if err != nil {
			if logger != nil {
				logger.Debug("extract: HTML parse failed", "error", err)
			}
			for _, rule := range rules {
				assignMiss(out, rule)
			}
			return out
		}
		for _, rule := range rules {
			if v, ok := extractHTMLRule(logger, doc, content, rule, baseURL); ok {
				out[rule.Name] = v
			}
		}
	case strings.Contains(lowerCT, "json"):
		root, err := parseJSON(content)
		if err != nil {
			if logger != nil {
				logger.Debug("extract: JSON parse failed", "error", err)
			}
			for _, rule := range rules {
				assignMiss(out, rule)
			}
			return out
		}
		for _, rule := range rules {
			if v, ok := extractJSONRule(logger, root, string(content), rule); ok {
				out[rule.Name] = v
			}
		}
	default:
		for _, rule := range rules {
			if rule.Selector.IsRegex() {
				if v, ok := extractRegexRule(logger, string(content), rule); ok {
					out[rule.Name] = v
				}
			} else {
				assignMiss(out, rule)
			}
		}
	}
	return out
}

// assignMiss fills the spec.md §4.3 "zero matches" contract: a required
// rule yields an empty value, a non-required rule yields nothing.
func assignMiss(out map[string]types.ExtractedValue, rule types.ExtractionRule) {
	if !rule.Required {
		return
	}
	if rule.Multiple {
		out[rule.Name] = types.List(nil)
	} else {
		out[rule.Name] = types.Text("")
	}
}
