// Package urlutil holds the small URL helpers shared by the extraction
// engine and the page pipeline: absolute-URL resolution, same-host
// comparison and the asset denylist used to keep link discovery from
// wandering into static resources.
package urlutil

import (
	"net/url"
	"strings"
)

// assetDenylist mirrors spec.md §4.3's fixed denylist of substrings that
// disqualify an otherwise-valid link: script/style/image/font assets,
// archives, media, common static-asset path prefixes, and the
// non-navigable URI schemes.
var assetDenylist = []string{
	".js", ".css",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".pdf", ".zip", ".tar", ".gz", ".rar", ".7z",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".webm",
	"/static/", "/assets/", "/images/", "/_static/",
	"javascript:", "mailto:", "#",
}

// Resolve parses href against base, stripping any fragment. It returns
// an error for hrefs that are not parseable at all (blank hrefs should
// be filtered by the caller before calling Resolve).
func Resolve(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	u, err := base.Parse(href)
	if err != nil {
		return nil, err
	}
	u.Fragment = ""
	return u, nil
}

// IsHTTP reports whether u has an http or https scheme.
func IsHTTP(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// SameHost reports whether a and b share a hostname, case-insensitively.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// PassesAssetDenylist reports whether the lower-cased URL does not
// contain any of the fixed denylist substrings from spec.md §4.3.
func PassesAssetDenylist(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, deny := range assetDenylist {
		if strings.Contains(lower, deny) {
			return false
		}
	}
	return true
}

// IsAcceptableLink applies the full link-acceptance rule from spec.md
// §4.3: absolute, HTTP(S), and passing the asset denylist.
func IsAcceptableLink(u *url.URL) bool {
	if u == nil || !u.IsAbs() || !IsHTTP(u) {
		return false
	}
	return PassesAssetDenylist(u.String())
}

// DedupAbsolute resolves and filters a slice of hrefs against base,
// returning deduped absolute URL strings in first-seen order.
func DedupAbsolute(base *url.URL, hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}
		u, err := Resolve(base, href)
		if err != nil || !IsAcceptableLink(u) {
			continue
		}
		key := u.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// SrcsetTokens parses a comma-separated srcset attribute value into the
// first whitespace-delimited token of each entry (its URL, dropping any
// trailing descriptor such as "2x" or "480w"), per spec.md §4.3's
// image-extraction rule.
func SrcsetTokens(srcset string) []string {
	entries := strings.Split(srcset, ",")
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}
