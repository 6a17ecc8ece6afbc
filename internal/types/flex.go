package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes from a JSON string, number or boolean.
// The generation service is not consistent about scalar types, so scores such
// as "3" and 3 must both be accepted.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = FlexString(val)
	case json.Number:
		*s = FlexString(val.String())
	case bool:
		*s = FlexString(strconv.FormatBool(val))
	default:
		return fmt.Errorf("cannot decode %s into a string", string(data))
	}
	return nil
}

// StringList decodes from a JSON array of scalars, a single string, or a
// string holding a JSON-encoded array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = string(item)
		}
		*l = out
		return nil
	}

	var single FlexString
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}

	text := strings.TrimSpace(string(single))
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		var encoded []string
		if err := json.Unmarshal([]byte(text), &encoded); err == nil {
			*l = encoded
			return nil
		}
	}

	*l = []string{string(single)}
	return nil
}

// CaseNumber is the numeric accident case number. It decodes from a JSON
// number or a numeric string.
type CaseNumber int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *CaseNumber) UnmarshalJSON(data []byte) error {
	var raw FlexString
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		*n = 0
		return nil
	}

	parsed, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("invalid case number %q", text)
		}
		parsed = int64(f)
	}
	*n = CaseNumber(parsed)
	return nil
}

func derefFlex(s *FlexString) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// flexField decodes fields[key] as a FlexString. A missing or mistyped field
// is empty.
func flexField(fields map[string]json.RawMessage, key string) string {
	var s FlexString
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return string(s)
}

// optionalField is flexField that keeps null and absent apart from "".
func optionalField(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	v := string(s)
	return &v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
