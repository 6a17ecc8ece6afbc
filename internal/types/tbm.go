package types

import (
	"encoding/json"
	"fmt"
)

// TbmKey names one section of a Toolbox Talk Meeting briefing.
type TbmKey string

// TBM sections. The order of TbmKeys is also the merge order of the
// generation endpoints.
const (
	TbmPrecautions TbmKey = "precautions"
	TbmChecklist   TbmKey = "checklist"
	TbmManagement  TbmKey = "management"
)

// TbmKeys lists the sections in display and merge order.
var TbmKeys = []TbmKey{TbmPrecautions, TbmChecklist, TbmManagement}

var tbmLabels = map[TbmKey]string{
	TbmPrecautions: "주의사항",
	TbmChecklist:   "체크리스트",
	TbmManagement:  "관리방안",
}

// Label returns the display label of the section.
func (k TbmKey) Label() string {
	if label, ok := tbmLabels[k]; ok {
		return label
	}
	return string(k)
}

// Valid reports whether k is a known section.
func (k TbmKey) Valid() bool {
	_, ok := tbmLabels[k]
	return ok
}

// ParseTbmKey converts s to a TbmKey.
func ParseTbmKey(s string) (TbmKey, error) {
	k := TbmKey(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown TBM section %q", s)
	}
	return k, nil
}

// TbmRecord is a TBM briefing: one list of lines per section.
type TbmRecord struct {
	Precautions []string `json:"precautions"`
	Checklist   []string `json:"checklist"`
	Management  []string `json:"management"`
}

// EmptyTbm returns a record with every section present and empty.
func EmptyTbm() TbmRecord {
	return TbmRecord{
		Precautions: []string{},
		Checklist:   []string{},
		Management:  []string{},
	}
}

// UnmarshalJSON implements json.Unmarshaler. Missing sections decode as empty.
func (t *TbmRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		Precautions StringList `json:"precautions"`
		Checklist   StringList `json:"checklist"`
		Management  StringList `json:"management"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*t = EmptyTbm()
	if wire.Precautions != nil {
		t.Precautions = wire.Precautions
	}
	if wire.Checklist != nil {
		t.Checklist = wire.Checklist
	}
	if wire.Management != nil {
		t.Management = wire.Management
	}
	return nil
}

// Section returns the lines of section k, or nil for an unknown key.
func (t TbmRecord) Section(k TbmKey) []string {
	switch k {
	case TbmPrecautions:
		return t.Precautions
	case TbmChecklist:
		return t.Checklist
	case TbmManagement:
		return t.Management
	}
	return nil
}

// SetSection replaces the lines of section k.
func (t *TbmRecord) SetSection(k TbmKey, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	switch k {
	case TbmPrecautions:
		t.Precautions = lines
	case TbmChecklist:
		t.Checklist = lines
	case TbmManagement:
		t.Management = lines
	default:
		return fmt.Errorf("unknown TBM section %q", k)
	}
	return nil
}

// Clone returns a deep copy of t.
func (t TbmRecord) Clone() TbmRecord {
	return TbmRecord{
		Precautions: append([]string{}, t.Precautions...),
		Checklist:   append([]string{}, t.Checklist...),
		Management:  append([]string{}, t.Management...),
	}
}
