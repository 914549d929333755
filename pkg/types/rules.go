package types

// ExtractionType selects which string is pulled from a matched element
// before the post-processor chain runs.
type ExtractionType int

const (
	ExtractText ExtractionType = iota
	ExtractHTML
	ExtractAttribute
	ExtractLink
	ExtractImageSrc
	ExtractJSON
)

func (t ExtractionType) String() string {
	switch t {
	case ExtractText:
		return "TEXT"
	case ExtractHTML:
		return "HTML"
	case ExtractAttribute:
		return "ATTRIBUTE"
	case ExtractLink:
		return "LINK"
	case ExtractImageSrc:
		return "IMAGE_SRC"
	case ExtractJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}

// Selector is a closed tagged union of the ways a rule can locate content
// in a page: CssSelector, XPathSelector, RegexSelector or JsonPathSelector.
// The zero value of Selector is invalid; always construct through one of
// the New*Selector functions so selectorKind stays consistent with the
// populated field.
type Selector struct {
	kind selectorKind

	query string // CssSelector / XPathSelector query, or JsonPathSelector path

	pattern string // RegexSelector pattern
	group   int    // RegexSelector capture group
}

type selectorKind int

const (
	selectorCSS selectorKind = iota
	selectorXPath
	selectorRegex
	selectorJSONPath
)

func NewCssSelector(query string) Selector {
	return Selector{kind: selectorCSS, query: query}
}

func NewXPathSelector(query string) Selector {
	return Selector{kind: selectorXPath, query: query}
}

func NewRegexSelector(pattern string, group int) Selector {
	return Selector{kind: selectorRegex, pattern: pattern, group: group}
}

func NewJSONPathSelector(path string) Selector {
	return Selector{kind: selectorJSONPath, query: path}
}

func (s Selector) IsCSS() bool      { return s.kind == selectorCSS }
func (s Selector) IsXPath() bool    { return s.kind == selectorXPath }
func (s Selector) IsRegex() bool    { return s.kind == selectorRegex }
func (s Selector) IsJSONPath() bool { return s.kind == selectorJSONPath }

// Query returns the CSS/XPath query or JSONPath expression. Empty for
// RegexSelector.
func (s Selector) Query() string { return s.query }

// Pattern and Group return the RegexSelector fields. Zero values for
// every other kind.
func (s Selector) Pattern() string { return s.pattern }
func (s Selector) Group() int      { return s.group }

// ExtractionRule describes one named field to pull out of a page.
type ExtractionRule struct {
	Name      string
	Selector  Selector
	Type      ExtractionType
	Attribute string // attribute name for ExtractAttribute; defaults to "href"
	Post      []PostProcessor
	Required  bool
	Multiple  bool
}

// AttributeName returns the configured attribute, defaulting to "href"
// per the resolved open question in SPEC_FULL.md §4.3.
func (r ExtractionRule) AttributeName() string {
	if r.Attribute == "" {
		return "href"
	}
	return r.Attribute
}

// PostProcessor is a closed tagged union applied, in order, to a raw
// extracted string before it is wrapped into an ExtractedValue.
type PostProcessor struct {
	kind postProcessorKind

	pattern     string // Replace / Extract
	replacement string // Replace
	group       int    // Extract

	start int // Substring
	end   int // Substring; -1 means "to end"

	customID     string
	customConfig map[string]string
}

type postProcessorKind int

const (
	ppTrim postProcessorKind = iota
	ppUpperCase
	ppLowerCase
	ppReplace
	ppExtract
	ppSubstring
	ppCustom
)

func PPTrim() PostProcessor      { return PostProcessor{kind: ppTrim} }
func PPUpperCase() PostProcessor { return PostProcessor{kind: ppUpperCase} }
func PPLowerCase() PostProcessor { return PostProcessor{kind: ppLowerCase} }

func PPReplace(pattern, replacement string) PostProcessor {
	return PostProcessor{kind: ppReplace, pattern: pattern, replacement: replacement}
}

func PPExtract(pattern string, group int) PostProcessor {
	return PostProcessor{kind: ppExtract, pattern: pattern, group: group}
}

// PPSubstring builds a Substring processor. Pass end < 0 for "to end".
func PPSubstring(start, end int) PostProcessor {
	return PostProcessor{kind: ppSubstring, start: start, end: end}
}

func PPCustom(id string, config map[string]string) PostProcessor {
	return PostProcessor{kind: ppCustom, customID: id, customConfig: config}
}

func (p PostProcessor) IsTrim() bool      { return p.kind == ppTrim }
func (p PostProcessor) IsUpperCase() bool { return p.kind == ppUpperCase }
func (p PostProcessor) IsLowerCase() bool { return p.kind == ppLowerCase }
func (p PostProcessor) IsReplace() bool   { return p.kind == ppReplace }
func (p PostProcessor) IsExtract() bool   { return p.kind == ppExtract }
func (p PostProcessor) IsSubstring() bool { return p.kind == ppSubstring }
func (p PostProcessor) IsCustom() bool    { return p.kind == ppCustom }

func (p PostProcessor) Pattern() string         { return p.pattern }
func (p PostProcessor) Replacement() string     { return p.replacement }
func (p PostProcessor) Group() int              { return p.group }
func (p PostProcessor) Substring() (int, int)   { return p.start, p.end }
func (p PostProcessor) CustomID() string        { return p.customID }
func (p PostProcessor) CustomConfig() map[string]string { return p.customConfig }
