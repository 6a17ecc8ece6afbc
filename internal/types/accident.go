package types

import (
	"encoding/json"
	"maps"
)

// AccidentCase is one record of the bundled accident-case dataset.
type AccidentCase struct {
	ID       string           `json:"id"`
	Content  *string          `json:"chunk_content"`
	Metadata AccidentMetadata `json:"metadata"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AccidentCase) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       FlexString       `json:"id"`
		Content  *FlexString      `json:"chunk_content"`
		Metadata AccidentMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.ID = string(wire.ID)
	a.Content = derefFlex(wire.Content)
	a.Metadata = wire.Metadata
	return nil
}

// Clone returns a deep copy of a.
func (a AccidentCase) Clone() AccidentCase {
	out := a
	out.Content = cloneString(a.Content)
	out.Metadata.Extra = maps.Clone(a.Metadata.Extra)
	return out
}

// AccidentMetadata carries the case number used as the join key plus any
// other metadata fields, kept verbatim.
type AccidentMetadata struct {
	CaseNo CaseNumber
	Extra  map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *AccidentMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	m.CaseNo = 0
	if raw, ok := fields["case_no"]; ok {
		if err := json.Unmarshal(raw, &m.CaseNo); err != nil {
			return err
		}
		delete(fields, "case_no")
	}
	if len(fields) == 0 {
		fields = nil
	}
	m.Extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m AccidentMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["case_no"] = int64(m.CaseNo)
	return json.Marshal(out)
}

// CloneAccidents deep-copies an accident case list.
func CloneAccidents(in []AccidentCase) []AccidentCase {
	if in == nil {
		return nil
	}
	out := make([]AccidentCase, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
