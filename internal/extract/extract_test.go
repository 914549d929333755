package extract

import (
	"net/url"
	"testing"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func mustBase(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	return u
}

const samplePage = `<html lang="en"><head><title>Sample</title>
<meta charset="utf-8"><meta name="description" content="a test page"></head>
<body>
<h1 class="headline">Hello World</h1>
<a href="/next">Next</a>
<a href="/next">Next again</a>
<a href="javascript:void(0)">skip</a>
<img src="/pic.png" alt="a pic" width="10">
</body></html>`

func TestExtractCSSTextSingle(t *testing.T) {
	rules := []types.ExtractionRule{
		{Name: "headline", Selector: types.NewCssSelector(".headline"), Type: types.ExtractText},
	}
	out := Extract(nil, []byte(samplePage), "text/html; charset=utf-8", rules, mustBase(t, "https://a.test/"))
	v, ok := out["headline"]
	if !ok || v.TextValue() != "Hello World" {
		t.Fatalf("got %+v, ok=%v", v, ok)
	}
}

func TestExtractCSSLinkResolvesAbsolute(t *testing.T) {
	rules := []types.ExtractionRule{
		{Name: "link", Selector: types.NewCssSelector("a"), Type: types.ExtractLink, Multiple: true},
	}
	out := Extract(nil, []byte(samplePage), "text/html", rules, mustBase(t, "https://a.test/"))
	v := out["link"]
	// Per-rule CSS extraction does not dedupe (only the dedicated Links
	// side-extraction does); the two "/next" anchors both resolve.
	if !v.IsList() || len(v.ListValue()) != 2 {
		t.Fatalf("got %+v, want two absolute link matches", v)
	}
	for _, item := range v.ListValue() {
		if item.TextValue() != "https://a.test/next" {
			t.Fatalf("got %q", item.TextValue())
		}
	}
}

func TestExtractMissingRuleRequiredVsOptional(t *testing.T) {
	rules := []types.ExtractionRule{
		{Name: "required_missing", Selector: types.NewCssSelector(".nope"), Type: types.ExtractText, Required: true},
		{Name: "optional_missing", Selector: types.NewCssSelector(".nope"), Type: types.ExtractText},
	}
	out := Extract(nil, []byte(samplePage), "text/html", rules, mustBase(t, "https://a.test/"))
	if v, ok := out["required_missing"]; !ok || v.TextValue() != "" {
		t.Fatalf("required rule with no match must yield empty Text, got %+v ok=%v", v, ok)
	}
	if _, ok := out["optional_missing"]; ok {
		t.Fatalf("optional rule with no match must not appear in the result map")
	}
}

func TestExtractRegexOverText(t *testing.T) {
	rules := []types.ExtractionRule{
		{Name: "word", Selector: types.NewRegexSelector(`Hello (\w+)`, 1), Type: types.ExtractText},
	}
	out := Extract(nil, []byte(samplePage), "text/html", rules, mustBase(t, "https://a.test/"))
	if out["word"].TextValue() != "World" {
		t.Fatalf("got %+v", out["word"])
	}
}

func TestExtractJSONPath(t *testing.T) {
	body := `{"user":{"name":"ada","tags":["x","y"]}}`
	rules := []types.ExtractionRule{
		{Name: "name", Selector: types.NewJSONPathSelector("$.user.name"), Type: types.ExtractJSON},
		{Name: "tags", Selector: types.NewJSONPathSelector("$.user.tags"), Type: types.ExtractJSON, Multiple: true},
	}
	out := Extract(nil, []byte(body), "application/json", rules, nil)
	if out["name"].TextValue() != "ada" {
		t.Fatalf("got %+v", out["name"])
	}
	tags := out["tags"]
	if !tags.IsList() || len(tags.ListValue()) != 2 {
		t.Fatalf("got %+v", tags)
	}
}

func TestLinksAppliesAssetDenylist(t *testing.T) {
	doc, err := parseHTML([]byte(samplePage))
	if err != nil {
		t.Fatalf("parseHTML: %v", err)
	}
	links := Links(doc, mustBase(t, "https://a.test/"))
	if len(links) != 1 || links[0] != "https://a.test/next" {
		t.Fatalf("got %v", links)
	}
}

func TestImagesResolvesAbsolute(t *testing.T) {
	doc, err := parseHTML([]byte(samplePage))
	if err != nil {
		t.Fatalf("parseHTML: %v", err)
	}
	images := Images(doc, mustBase(t, "https://a.test/"))
	if len(images) != 1 || images[0].URL != "https://a.test/pic.png" || images[0].Width != 10 {
		t.Fatalf("got %+v", images)
	}
}

func TestMetadataCollectsTitleCharsetLanguage(t *testing.T) {
	doc, err := parseHTML([]byte(samplePage))
	if err != nil {
		t.Fatalf("parseHTML: %v", err)
	}
	meta := Metadata(doc)
	if meta["title"] != "Sample" || meta["charset"] != "utf-8" || meta["language"] != "en" {
		t.Fatalf("got %+v", meta)
	}
	if meta["description"] != "a test page" {
		t.Fatalf("got %+v", meta)
	}
}
