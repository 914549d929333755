package extract

import (
	"log/slog"
	"regexp"

	"github.com/DreamForgeSolutions/Krawler/internal/postprocess"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// extractRegexRule runs a RegexSelector over text, per spec.md §4.3: if
// multiple, collect every match; else only the first. Select group g
// when g>0 and valid, else the whole match.
func extractRegexRule(logger *slog.Logger, text string, rule types.ExtractionRule) (types.ExtractedValue, bool) {
	re, err := regexp.Compile(rule.Selector.Pattern())
	if err != nil {
		if logger != nil {
			logger.Debug("extract: bad regex pattern", "pattern", rule.Selector.Pattern(), "error", err)
		}
		return missResult(rule)
	}

	group := rule.Selector.Group()
	pick := func(m []string) string {
		if group > 0 && group < len(m) {
			return m[group]
		}
		return m[0]
	}

	if rule.Multiple {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			return missResult(rule)
		}
		items := make([]types.ExtractedValue, 0, len(matches))
		for _, m := range matches {
			v := postprocess.Apply(logger, pick(m), rule.Post)
			items = append(items, types.Text(v))
		}
		return types.List(items), true
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return missResult(rule)
	}
	v := postprocess.Apply(logger, pick(m), rule.Post)
	return types.Text(v), true
}
