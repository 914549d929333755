package types

import (
	"fmt"
	"sort"
	"strings"
)

// ExtractedValue is a closed tagged union produced by the extraction
// engine: Text, Number, Bool, List, Map or Null. The zero value is Null.
type ExtractedValue struct {
	kind valueKind

	text   string
	number float64
	boolean bool
	list   []ExtractedValue
	m      map[string]ExtractedValue
}

type valueKind int

const (
	valueNull valueKind = iota
	valueText
	valueNumber
	valueBool
	valueList
	valueMap
)

func Text(s string) ExtractedValue          { return ExtractedValue{kind: valueText, text: s} }
func Number(n float64) ExtractedValue       { return ExtractedValue{kind: valueNumber, number: n} }
func Bool(b bool) ExtractedValue            { return ExtractedValue{kind: valueBool, boolean: b} }
func List(items []ExtractedValue) ExtractedValue {
	return ExtractedValue{kind: valueList, list: items}
}
func Map(m map[string]ExtractedValue) ExtractedValue {
	return ExtractedValue{kind: valueMap, m: m}
}
func Null() ExtractedValue { return ExtractedValue{kind: valueNull} }

func (v ExtractedValue) IsText() bool   { return v.kind == valueText }
func (v ExtractedValue) IsNumber() bool { return v.kind == valueNumber }
func (v ExtractedValue) IsBool() bool   { return v.kind == valueBool }
func (v ExtractedValue) IsList() bool   { return v.kind == valueList }
func (v ExtractedValue) IsMap() bool    { return v.kind == valueMap }
func (v ExtractedValue) IsNull() bool   { return v.kind == valueNull }

func (v ExtractedValue) TextValue() string                 { return v.text }
func (v ExtractedValue) NumberValue() float64               { return v.number }
func (v ExtractedValue) BoolValue() bool                    { return v.boolean }
func (v ExtractedValue) ListValue() []ExtractedValue        { return v.list }
func (v ExtractedValue) MapValue() map[string]ExtractedValue { return v.m }

// String renders the value as plain text for logging: whole numbers
// print without a decimal point, List and Map values recurse, and Map
// keys appear in sorted order.
func (v ExtractedValue) String() string {
	switch v.kind {
	case valueText:
		return v.text
	case valueNumber:
		return formatNumber(v.number)
	case valueBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case valueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case valueMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s", k, v.m[k].String()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
