package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata implements spec.md §4.3's metadata extraction: the document
// title, every <meta> with a non-blank name (falling back to property)
// and non-blank content, <meta charset> and <html lang>. The result is
// a flat map contributing "title", "charset" and "language" alongside
// whatever meta names the page declares.
func Metadata(doc *goquery.Document) map[string]string {
	out := make(map[string]string)

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		out["title"] = title
	}

	if lang, ok := doc.Find("html").First().Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		out["language"] = strings.TrimSpace(lang)
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if charset, ok := s.Attr("charset"); ok && strings.TrimSpace(charset) != "" {
			out["charset"] = strings.TrimSpace(charset)
			return
		}
		name, ok := s.Attr("name")
		if !ok || strings.TrimSpace(name) == "" {
			name, ok = s.Attr("property")
			if !ok || strings.TrimSpace(name) == "" {
				return
			}
		}
		content, ok := s.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(content)
	})

	return out
}
