package postprocess

import (
	"testing"

	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func TestApplyTrimUpperLower(t *testing.T) {
	got := Apply(nil, "  Hello  ", []types.PostProcessor{types.PPTrim(), types.PPUpperCase()})
	if got != "HELLO" {
		t.Fatalf("got %q, want HELLO", got)
	}
}

func TestApplyReplace(t *testing.T) {
	got := Apply(nil, "foo123bar", []types.PostProcessor{types.PPReplace(`\d+`, "#")})
	if got != "foo#bar" {
		t.Fatalf("got %q, want foo#bar", got)
	}
}

func TestApplyExtractGroup(t *testing.T) {
	got := Apply(nil, "price: $42.50", []types.PostProcessor{types.PPExtract(`\$(\d+\.\d+)`, 1)})
	if got != "42.50" {
		t.Fatalf("got %q, want 42.50", got)
	}
}

func TestApplyExtractMissReturnsOriginal(t *testing.T) {
	got := Apply(nil, "no digits here", []types.PostProcessor{types.PPExtract(`\d+`, 0)})
	if got != "no digits here" {
		t.Fatalf("got %q, want original string on miss", got)
	}
}

func TestApplySubstringClamps(t *testing.T) {
	got := Apply(nil, "hello", []types.PostProcessor{types.PPSubstring(2, 100)})
	if got != "llo" {
		t.Fatalf("got %q, want llo", got)
	}
	got = Apply(nil, "hello", []types.PostProcessor{types.PPSubstring(-5, 3)})
	if got != "hel" {
		t.Fatalf("got %q, want hel", got)
	}
}

func TestApplyCustomCleanURL(t *testing.T) {
	got := Apply(nil, "https://a.test/x?utm_source=foo&id=7", []types.PostProcessor{
		types.PPCustom("clean_url", map[string]string{"keep": "id"}),
	})
	if got != "https://a.test/x?id=7" {
		t.Fatalf("got %q, want https://a.test/x?id=7", got)
	}
}

func TestApplyCustomUnregisteredKeepsValue(t *testing.T) {
	got := Apply(nil, "unchanged", []types.PostProcessor{types.PPCustom("nope", nil)})
	if got != "unchanged" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestNormalizeTextFoldsSmartPunctuation(t *testing.T) {
	got := Apply(nil, "it’s   “fine”…", []types.PostProcessor{
		types.PPCustom("normalize_text", nil),
	})
	if got != "it's \"fine\"..." {
		t.Fatalf("got %q", got)
	}
}

func TestExtractNumberDefaultPattern(t *testing.T) {
	got := Apply(nil, "total: 19.99 USD", []types.PostProcessor{types.PPCustom("extract_number", nil)})
	if got != "19.99" {
		t.Fatalf("got %q, want 19.99", got)
	}
}

func TestStripHTML(t *testing.T) {
	got := Apply(nil, "<p>hello <b>world</b></p>", []types.PostProcessor{types.PPCustom("strip_html", nil)})
	if got != "hello world" {
		t.Fatalf("got %q, want \"hello world\"", got)
	}
}
