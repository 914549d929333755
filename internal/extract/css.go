package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DreamForgeSolutions/Krawler/internal/postprocess"
	"github.com/DreamForgeSolutions/Krawler/internal/urlutil"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// parseHTML parses the body with goquery, grounded on the teacher's use
// of goquery.NewDocumentFromReader throughout internal/processor and
// internal/crawler.
func parseHTML(content []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(content))
}

// ParseHTML is the exported form of parseHTML, used by the page pipeline
// to build the single goquery.Document shared by Links, Images and
// Metadata after the rule-driven Extract call.
func ParseHTML(content []byte) (*goquery.Document, error) {
	return parseHTML(content)
}

// extractHTMLRule dispatches a single rule against a parsed HTML
// document, per spec.md §4.3's HTML path. The bool return is false when
// a non-required rule had zero matches and should not appear in the
// result map at all.
func extractHTMLRule(logger *slog.Logger, doc *goquery.Document, raw []byte, rule types.ExtractionRule, baseURL *url.URL) (types.ExtractedValue, bool) {
	switch {
	case rule.Selector.IsCSS():
		return extractCSSRule(logger, doc, rule, baseURL)
	case rule.Selector.IsRegex():
		return extractRegexRule(logger, renderedText(doc), rule)
	case rule.Selector.IsXPath():
		return extractXPathRule(logger, raw, rule, baseURL)
	default:
		// JsonPathSelector has no meaningful HTML-document behaviour.
		return missResult(rule)
	}
}

func extractCSSRule(logger *slog.Logger, doc *goquery.Document, rule types.ExtractionRule, baseURL *url.URL) (types.ExtractedValue, bool) {
	sel := doc.Find(rule.Selector.Query())
	var values []string

	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := pullFromSelection(s, rule, baseURL)
		if strings.TrimSpace(v) == "" {
			return true
		}
		v = postprocess.Apply(logger, v, rule.Post)
		values = append(values, v)
		return !(len(values) > 0 && !rule.Multiple)
	})

	if len(values) == 0 {
		return missResult(rule)
	}
	if rule.Multiple {
		items := make([]types.ExtractedValue, len(values))
		for i, v := range values {
			items[i] = types.Text(v)
		}
		return types.List(items), true
	}
	return types.Text(values[0]), true
}

func pullFromSelection(s *goquery.Selection, rule types.ExtractionRule, baseURL *url.URL) string {
	switch rule.Type {
	case types.ExtractText:
		return strings.TrimSpace(s.Text())
	case types.ExtractHTML:
		h, err := s.Html()
		if err != nil {
			return ""
		}
		return h
	case types.ExtractAttribute:
		v, _ := s.Attr(rule.AttributeName())
		return v
	case types.ExtractLink:
		href, ok := s.Attr("href")
		if !ok {
			return ""
		}
		return resolveOrEmpty(baseURL, href)
	case types.ExtractImageSrc:
		src, ok := s.Attr("src")
		if !ok {
			return ""
		}
		return resolveOrEmpty(baseURL, src)
	default:
		return strings.TrimSpace(s.Text())
	}
}

func resolveOrEmpty(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	u, err := urlutil.Resolve(base, href)
	if err != nil || !urlutil.IsHTTP(u) {
		return ""
	}
	return u.String()
}

func renderedText(doc *goquery.Document) string {
	return doc.Text()
}

// missResult implements spec.md §4.3's zero-match contract: a required
// rule yields an empty value, a non-required rule yields nothing (the
// map key is left unset).
func missResult(rule types.ExtractionRule) (types.ExtractedValue, bool) {
	if !rule.Required {
		return types.Null(), false
	}
	if rule.Multiple {
		return types.List(nil), true
	}
	return types.Text(""), true
}
