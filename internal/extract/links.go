package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/DreamForgeSolutions/Krawler/internal/urlutil"
)

// Links implements spec.md §4.3's link extraction: select a[href],
// resolve to absolute, keep only HTTP(S) URLs passing the asset
// denylist, deduped in document order.
func Links(doc *goquery.Document, baseURL *url.URL) []string {
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return urlutil.DedupAbsolute(baseURL, hrefs)
}
