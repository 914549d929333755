package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DreamForgeSolutions/Krawler/internal/urlutil"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// Images implements spec.md §4.3's image extraction: select img[src]
// with absolute resolution, also parse srcset comma-lists taking the
// first whitespace-delimited token of each entry, HTTP(S) only.
func Images(doc *goquery.Document, baseURL *url.URL) []types.ImageRef {
	seen := make(map[string]struct{})
	var out []types.ImageRef

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		candidates := make([]string, 0, 2)
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			candidates = append(candidates, src)
		}
		if srcset, ok := s.Attr("srcset"); ok {
			candidates = append(candidates, urlutil.SrcsetTokens(srcset)...)
		}
		for _, raw := range candidates {
			u, err := urlutil.Resolve(baseURL, raw)
			if err != nil || !urlutil.IsHTTP(u) {
				continue
			}
			key := u.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, types.ImageRef{
				URL:    key,
				Alt:    attrOrEmpty(s, "alt"),
				Width:  attrInt(s, "width"),
				Height: attrInt(s, "height"),
			})
		}
	})
	return out
}

func attrOrEmpty(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

func attrInt(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
