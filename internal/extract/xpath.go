package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	xpathpkg "github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/DreamForgeSolutions/Krawler/internal/postprocess"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// extractXPathRule implements the resolved Open Question from
// SPEC_FULL.md §4.3: XPathSelector is backed by htmlquery/xpath instead
// of warn-and-skip, using the same zero-match semantics as every other
// selector kind.
func extractXPathRule(logger *slog.Logger, raw []byte, rule types.ExtractionRule, baseURL *url.URL) (types.ExtractedValue, bool) {
	if _, err := xpathpkg.Compile(rule.Selector.Query()); err != nil {
		if logger != nil {
			logger.Debug("extract: bad xpath expression", "query", rule.Selector.Query(), "error", err)
		}
		return missResult(rule)
	}

	doc, err := htmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		if logger != nil {
			logger.Debug("extract: xpath document parse failed", "error", err)
		}
		return missResult(rule)
	}

	nodes, err := htmlquery.QueryAll(doc, rule.Selector.Query())
	if err != nil || len(nodes) == 0 {
		return missResult(rule)
	}

	var values []string
	for _, n := range nodes {
		v := pullFromXPathNode(n, rule, baseURL)
		if strings.TrimSpace(v) == "" {
			continue
		}
		v = postprocess.Apply(logger, v, rule.Post)
		values = append(values, v)
		if !rule.Multiple && len(values) > 0 {
			break
		}
	}

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

func pullFromXPathNode(n *html.Node, rule types.ExtractionRule, baseURL *url.URL) string {
	switch rule.Type {
	case types.ExtractHTML:
		return htmlquery.OutputHTML(n, true)
	case types.ExtractAttribute:
		return htmlquery.SelectAttr(n, rule.AttributeName())
	case types.ExtractLink:
		return resolveOrEmpty(baseURL, htmlquery.SelectAttr(n, "href"))
	case types.ExtractImageSrc:
		return resolveOrEmpty(baseURL, htmlquery.SelectAttr(n, "src"))
	default:
		return strings.TrimSpace(htmlquery.InnerText(n))
	}
}
