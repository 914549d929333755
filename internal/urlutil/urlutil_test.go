package urlutil

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestResolveStripsFragment(t *testing.T) {
	base := mustParse(t, "https://a.test/dir/page.html")
	got, err := Resolve(base, "/next#section")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.String() != "https://a.test/next" {
		t.Fatalf("got %q, want https://a.test/next", got.String())
	}
}

func TestSameHost(t *testing.T) {
	a := mustParse(t, "https://a.test/x")
	b := mustParse(t, "HTTPS://A.TEST/y")
	if !SameHost(a, b) {
		t.Fatalf("expected SameHost to be case-insensitive")
	}
	c := mustParse(t, "https://b.test/y")
	if SameHost(a, c) {
		t.Fatalf("expected different hosts to not match")
	}
}

func TestIsAcceptableLinkRejectsNonHTTP(t *testing.T) {
	u := mustParse(t, "javascript:void(0)")
	if IsAcceptableLink(u) {
		t.Fatalf("javascript: scheme must be rejected")
	}
	u = mustParse(t, "mailto:a@b.test")
	if IsAcceptableLink(u) {
		t.Fatalf("mailto: scheme must be rejected")
	}
}

func TestIsAcceptableLinkRejectsAssets(t *testing.T) {
	cases := []string{
		"https://a.test/app.js",
		"https://a.test/style.css",
		"https://a.test/static/logo.png",
		"https://a.test/assets/doc.pdf",
	}
	for _, raw := range cases {
		u := mustParse(t, raw)
		if IsAcceptableLink(u) {
			t.Fatalf("expected %q to be rejected by the asset denylist", raw)
		}
	}
}

func TestIsAcceptableLinkAcceptsOrdinaryPage(t *testing.T) {
	u := mustParse(t, "https://a.test/articles/42")
	if !IsAcceptableLink(u) {
		t.Fatalf("expected ordinary page URL to be accepted")
	}
}

func TestDedupAbsoluteDedupesAndFilters(t *testing.T) {
	base := mustParse(t, "https://a.test/")
	hrefs := []string{
		"/one",
		"/one",
		"https://a.test/one",
		"javascript:void(0)",
		"/two.js",
		"  /three  ",
		"",
	}
	got := DedupAbsolute(base, hrefs)
	want := []string{"https://a.test/one", "https://a.test/three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%q, want %q", i, got[i], want[i])
		}
	}
}

func TestSrcsetTokens(t *testing.T) {
	got := SrcsetTokens("img-320.jpg 320w, img-640.jpg 640w, img-960.jpg 960w")
	want := []string{"img-320.jpg", "img-640.jpg", "img-960.jpg"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%q, want %q", i, got[i], want[i])
		}
	}
	if len(SrcsetTokens("")) != 0 {
		t.Fatalf("expected empty srcset to yield no tokens")
	}
}
