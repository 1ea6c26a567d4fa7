package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// To protect against stored markup injection we run every free-text answer
// through a bluemonday policy before it reaches the database. Intake answers
// are plain text, so the strict policy (strip everything) is used rather than
// the UGC policy.
var policy = bluemonday.StrictPolicy()

// String strips all markup from a single value and trims surrounding space.
func String(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

// Strings walks an arbitrary decoded-JSON value and sanitizes every string
// it contains, recursing through objects and lists. Non-string scalars pass
// through untouched.
func Strings(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Strings(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Strings(item)
		}
		return out
	default:
		return v
	}
}

// StringMap is a convenience wrapper for answer maps.
func StringMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return Strings(m).(map[string]any)
}
