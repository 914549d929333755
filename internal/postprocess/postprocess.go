// Package postprocess folds the post-processor chain attached to an
// extraction rule over a raw extracted string.
package postprocess

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// Apply folds processors left-to-right over s. A processor that fails
// (a bad regex, an unregistered custom id) logs and leaves the value
// unchanged, per spec.md §4.4.
func Apply(logger *slog.Logger, s string, processors []types.PostProcessor) string {
	for _, p := range processors {
		next, err := applyOne(s, p)
		if err != nil {
			if logger != nil {
				logger.Debug("post-processor failed", "error", err)
			}
			continue
		}
		s = next
	}
	return s
}

func applyOne(s string, p types.PostProcessor) (string, error) {
	switch {
	case p.IsTrim():
		return strings.TrimSpace(s), nil
	case p.IsUpperCase():
		return strings.ToUpper(s), nil
	case p.IsLowerCase():
		return strings.ToLower(s), nil
	case p.IsReplace():
		re, err := regexp.Compile(p.Pattern())
		if err != nil {
			return s, err
		}
		return re.ReplaceAllString(s, p.Replacement()), nil
	case p.IsExtract():
		re, err := regexp.Compile(p.Pattern())
		if err != nil {
			return s, err
		}
		m := re.FindStringSubmatch(s)
		if m == nil {
			return s, nil
		}
		g := p.Group()
		if g > 0 && g < len(m) {
			return m[g], nil
		}
		return m[0], nil
	case p.IsSubstring():
		start, end := p.Substring()
		return clampSubstring(s, start, end), nil
	case p.IsCustom():
		fn, ok := Lookup(p.CustomID())
		if !ok {
			return s, errUnregisteredCustom(p.CustomID())
		}
		return fn(s, p.CustomConfig()), nil
	default:
		return s, nil
	}
}

// clampSubstring applies Substring(start,end) clamped to [0,len(s)]. end
// < 0 means "to end".
func clampSubstring(s string, start, end int) string {
	n := len(s)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < 0 || end > n {
		end = n
	}
	if end < start {
		return ""
	}
	return s[start:end]
}

type errUnregisteredCustom string

func (e errUnregisteredCustom) Error() string {
	return "postprocess: unregistered custom processor " + string(e)
}
