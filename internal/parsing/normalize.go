// Package parsing decodes and normalizes payloads returned by the safety
// generation service.
package parsing

import (
	"encoding/json"
	"strings"
)

// MaxEncodedItems caps the number of entries kept from a string-encoded array.
const MaxEncodedItems = 10

// SanitizeArrayStrings walks a decoded JSON tree and replaces every string
// that holds a JSON array of strings (e.g. `["a","b"]`) with the decoded,
// de-duplicated array, truncated to MaxEncodedItems entries. The service
// sometimes serializes list fields twice; everything else passes through
// unchanged. The input is not modified.
func SanitizeArrayStrings(v any) any {
	switch val := v.(type) {
	case string:
		if items, ok := decodeStringArray(val); ok {
			return items
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = SanitizeArrayStrings(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = SanitizeArrayStrings(item)
		}
		return out
	default:
		return v
	}
}

// decodeStringArray parses s as a non-empty JSON array whose elements are all
// strings. Anything else reports false.
func decodeStringArray(s string) ([]any, bool) {
	text := strings.TrimSpace(s)
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' || !strings.Contains(text, `"`) {
		return nil, false
	}

	var raw []any
	if err := json.Unmarshal([]byte(text), &raw); err != nil || len(raw) == 0 {
		return nil, false
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]any, 0, min(len(raw), MaxEncodedItems))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		if _, dup := seen[str]; dup {
			continue
		}
		seen[str] = struct{}{}
		if len(out) < MaxEncodedItems {
			out = append(out, str)
		}
	}
	return out, true
}
