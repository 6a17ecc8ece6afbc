// Package types provides type definitions for the records exchanged with the
// safety generation service and edited by the user.
package types

import (
	"encoding/json"
	"strings"
)

// RiskValue is the closed set of risk codes a hazard can be rated with.
type RiskValue string

// Risk value codes, highest first.
const (
	RiskHigh    RiskValue = "3"
	RiskMedium  RiskValue = "2"
	RiskLow     RiskValue = "1"
	RiskUnknown RiskValue = "-"
)

// RiskValueInfo describes one risk code.
type RiskValueInfo struct {
	Value RiskValue `json:"value"`
	Label string    `json:"label"` // action label shown to site staff
	Code  string    `json:"code"`  // 상/중/하/모름
	Tier  string    `json:"tier"`
}

// RiskValues lists every legal risk code in display order.
var RiskValues = []RiskValueInfo{
	{Value: RiskHigh, Label: "즉시개선", Code: "상", Tier: "immediate fix"},
	{Value: RiskMedium, Label: "개선", Code: "중", Tier: "improve"},
	{Value: RiskLow, Label: "현재상태유지", Code: "하", Tier: "maintain"},
	{Value: RiskUnknown, Label: "미정", Code: "모름", Tier: "undetermined"},
}

// ParseRiskValue returns the risk code for s, or false if s is not one of them.
func ParseRiskValue(s string) (RiskValue, bool) {
	v := RiskValue(strings.TrimSpace(s))
	return v, v.Valid()
}

// Valid reports whether v is one of the four risk codes.
func (v RiskValue) Valid() bool {
	switch v {
	case RiskHigh, RiskMedium, RiskLow, RiskUnknown:
		return true
	}
	return false
}

// Info returns the description of v. Unknown values describe as RiskUnknown.
func (v RiskValue) Info() RiskValueInfo {
	for _, info := range RiskValues {
		if info.Value == v {
			return info
		}
	}
	return RiskValues[len(RiskValues)-1]
}

// UnmarshalJSON accepts both "3" and 3.
func (v *RiskValue) UnmarshalJSON(data []byte) error {
	var raw FlexString
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = RiskValue(strings.TrimSpace(string(raw)))
	return nil
}

// Measure is a {level, score} pair used for likelihood, severity and risk level.
type Measure struct {
	Level string `json:"level"`
	Score string `json:"score"`
}

// UnmarshalJSON accepts a {level, score} object or a bare scalar, which is
// taken as the level.
func (m *Measure) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil {
		*m = Measure{Level: flexField(fields, "level"), Score: flexField(fields, "score")}
		return nil
	}

	var level FlexString
	if err := json.Unmarshal(data, &level); err != nil {
		return err
	}
	*m = Measure{Level: string(level)}
	return nil
}

// HazardRecord is one row of a risk assessment.
type HazardRecord struct {
	Category              string     `json:"hazard_category"`
	Cause                 string     `json:"hazard_cause"`
	Detail                string     `json:"hazard_detail"`
	LegalReference        string     `json:"legal_reference"`
	SafetyMeasures        []string   `json:"safety_measures"`
	Likelihood            Measure    `json:"risk_likelihood"`
	Severity              Measure    `json:"risk_severity"`
	Level                 Measure    `json:"risk_level"`
	Mitigation            *string    `json:"mitigation"`
	CurrentSafetyMeasures *string    `json:"current_safety_measures"`
	CurrentRiskValue      *RiskValue `json:"current_risk_value" validate:"omitempty,riskvalue"`
	ResidualRiskValue     *RiskValue `json:"residual_risk_value" validate:"omitempty,riskvalue"`
}

// UnmarshalJSON decodes a hazard leniently and never fails. A field of an
// unexpected type is left empty, risk values outside the closed set become
// null, and an element that is not an object becomes a placeholder row
// carrying its text as the detail.
func (h *HazardRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*h = PlaceholderHazard()
		var text FlexString
		if json.Unmarshal(data, &text) == nil && strings.TrimSpace(string(text)) != "" {
			h.Detail = string(text)
		}
		return nil
	}

	*h = HazardRecord{
		Category:              flexField(fields, "hazard_category"),
		Cause:                 flexField(fields, "hazard_cause"),
		Detail:                flexField(fields, "hazard_detail"),
		LegalReference:        flexField(fields, "legal_reference"),
		SafetyMeasures:        listField(fields, "safety_measures"),
		Likelihood:            measureField(fields, "risk_likelihood"),
		Severity:              measureField(fields, "risk_severity"),
		Level:                 measureField(fields, "risk_level"),
		Mitigation:            optionalField(fields, "mitigation"),
		CurrentSafetyMeasures: optionalField(fields, "current_safety_measures"),
		CurrentRiskValue:      riskField(fields, "current_risk_value"),
		ResidualRiskValue:     riskField(fields, "residual_risk_value"),
	}
	return nil
}

func listField(fields map[string]json.RawMessage, key string) []string {
	var l StringList
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &l) == nil {
		return []string(l)
	}
	return nil
}

func measureField(fields map[string]json.RawMessage, key string) Measure {
	var m Measure
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &m) == nil {
		return m
	}
	return Measure{}
}

func riskField(fields map[string]json.RawMessage, key string) *RiskValue {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v RiskValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return legalRiskValue(&v)
}

func legalRiskValue(v *RiskValue) *RiskValue {
	if v == nil || !v.Valid() {
		return nil
	}
	out := *v
	return &out
}

// Validate checks that the risk value fields hold legal codes.
func (h *HazardRecord) Validate() error {
	return newValidator().Struct(h)
}

// Clone returns a deep copy of h.
func (h HazardRecord) Clone() HazardRecord {
	out := h
	if h.SafetyMeasures != nil {
		out.SafetyMeasures = append([]string(nil), h.SafetyMeasures...)
	}
	out.Mitigation = cloneString(h.Mitigation)
	out.CurrentSafetyMeasures = cloneString(h.CurrentSafetyMeasures)
	if h.CurrentRiskValue != nil {
		v := *h.CurrentRiskValue
		out.CurrentRiskValue = &v
	}
	if h.ResidualRiskValue != nil {
		v := *h.ResidualRiskValue
		out.ResidualRiskValue = &v
	}
	return out
}

// PlaceholderHazard returns the record shown before any assessment exists.
func PlaceholderHazard() HazardRecord {
	return HazardRecord{
		Category:       "-",
		Cause:          "-",
		Detail:         "-",
		LegalReference: "-",
		SafetyMeasures: []string{"-"},
		Likelihood:     Measure{Level: "-", Score: "-"},
		Severity:       Measure{Level: "-", Score: "-"},
		Level:          Measure{Level: "-", Score: "-"},
	}
}

// CloneHazards deep-copies a hazard list.
func CloneHazards(in []HazardRecord) []HazardRecord {
	if in == nil {
		return nil
	}
	out := make([]HazardRecord, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
