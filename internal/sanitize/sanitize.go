// Package sanitize strips markup and HTML-special characters from free text before it is persisted.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy   = bluemonday.StrictPolicy()
	specials = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")
)

// String removes tags, decodes entities the policy produced and drops any remaining
// HTML-special characters.
func String(s string) string {
	cleaned := policy.Sanitize(s)
	cleaned = html.UnescapeString(cleaned)
	cleaned = specials.Replace(cleaned)
	return strings.TrimSpace(cleaned)
}

// Value sanitizes strings nested anywhere inside maps and slices.
func Value(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]interface{}:
		return Map(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = String(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = Map(item)
		}
		return out
	default:
		return v
	}
}

// Map returns a sanitized copy of m.
func Map(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = Value(v)
	}
	return out
}
