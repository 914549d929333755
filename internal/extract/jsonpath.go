package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DreamForgeSolutions/Krawler/internal/postprocess"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

// parseJSON decodes the body into a generic tree: map[string]any,
// []any, or a primitive/nil leaf.
func parseJSON(content []byte) (any, error) {
	var root any
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, err
	}
	return root, nil
}

// extractJSONRule dispatches a single rule against the decoded JSON
// tree, per spec.md §4.3's JSON path.
func extractJSONRule(logger *slog.Logger, root any, raw string, rule types.ExtractionRule) (types.ExtractedValue, bool) {
	if rule.Selector.IsJSONPath() {
		return extractJSONPath(logger, root, rule)
	}
	if rule.Selector.IsRegex() {
		return extractRegexRule(logger, raw, rule)
	}
	// CssSelector/XPathSelector have no meaningful JSON-document behaviour.
	return missResult(rule)
}

// extractJSONPath implements the dotted-path descent from spec.md §4.3:
// trim a leading '$', split on '.', descend into object keys or array
// indices, abort on miss.
func extractJSONPath(logger *slog.Logger, root any, rule types.ExtractionRule) (types.ExtractedValue, bool) {
	path := strings.TrimPrefix(rule.Selector.Query(), "$")
	path = strings.TrimPrefix(path, ".")

	node := root
	if path != "" {
		for _, segment := range strings.Split(path, ".") {
			next, ok := descend(node, segment)
			if !ok {
				return missResult(rule)
			}
			node = next
		}
	}

	v, ok := jsonNodeToValue(node, rule.Multiple)
	if !ok {
		return missResult(rule)
	}

	textualised := postprocessJSONValue(logger, v, rule.Post)
	return textualised, true
}

func descend(node any, segment string) (any, bool) {
	if idx, err := strconv.Atoi(segment); err == nil {
		arr, ok := node.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return nil, false
		}
		return arr[idx], true
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	v, present := obj[segment]
	if !present {
		return nil, false
	}
	return v, true
}

// jsonNodeToValue converts the node reached by the dotted path into an
// ExtractedValue per spec.md §4.3: primitive -> Text(stringified),
// array with multiple -> List of primitive children, array otherwise ->
// recurse on first, object -> Text(serialized), null -> Null.
func jsonNodeToValue(node any, multiple bool) (types.ExtractedValue, bool) {
	switch n := node.(type) {
	case nil:
		return types.Null(), true
	case []any:
		if multiple {
			items := make([]types.ExtractedValue, 0, len(n))
			for _, child := range n {
				v, ok := jsonNodeToValue(child, false)
				if !ok {
					continue
				}
				items = append(items, v)
			}
			return types.List(items), true
		}
		if len(n) == 0 {
			return types.Null(), false
		}
		return jsonNodeToValue(n[0], false)
	case map[string]any:
		b, err := json.Marshal(n)
		if err != nil {
			return types.Null(), false
		}
		return types.Text(string(b)), true
	case string:
		return types.Text(n), true
	case float64:
		return types.Text(strconv.FormatFloat(n, 'g', -1, 64)), true
	case bool:
		return types.Text(strconv.FormatBool(n)), true
	default:
		return types.Text(fmt.Sprintf("%v", n)), true
	}
}

// postprocessJSONValue applies the post-processor chain to Text values,
// including each Text element of a List; Map and Null values are left
// untouched.
func postprocessJSONValue(logger *slog.Logger, v types.ExtractedValue, post []types.PostProcessor) types.ExtractedValue {
	if v.IsList() {
		items := v.ListValue()
		out := make([]types.ExtractedValue, len(items))
		for i, item := range items {
			out[i] = postprocessJSONValue(logger, item, post)
		}
		return types.List(out)
	}
	if v.IsText() {
		return types.Text(postprocess.Apply(logger, v.TextValue(), post))
	}
	return v
}
