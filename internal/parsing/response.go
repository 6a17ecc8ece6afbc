package parsing

import (
	"bytes"
	"encoding/json"

	"github.com/ragcon/safety-assistant/internal/schemas"
	"github.com/ragcon/safety-assistant/internal/types"
)

// HazardShape tells which hazard payload shape arrived.
type HazardShape int

const (
	// HazardBareArray is a top-level JSON array of hazards.
	HazardBareArray HazardShape = iota
	// HazardWrappedArray is an object carrying the array under "answer".
	HazardWrappedArray
	// HazardNoList is any other JSON value; it carries no hazards.
	HazardNoList
)

func (s HazardShape) String() string {
	switch s {
	case HazardWrappedArray:
		return "wrapped"
	case HazardNoList:
		return "none"
	default:
		return "bare"
	}
}

// HazardPayload is a decoded risk-assessment response.
type HazardPayload struct {
	Shape   HazardShape
	Records []types.HazardRecord
}

// DecodeHazards decodes a risk-assessment response. A bare array and an array
// under "answer" carry hazards; any other JSON value is an empty assessment.
// Records are taken as the service returns them, whatever their shape.
func DecodeHazards(body []byte) (*HazardPayload, error) {
	if err := schemas.Validate(schemas.HazardAssessment, body); err != nil {
		return nil, &ShapeError{Message: "risk assessment", Cause: err}
	}

	trimmed := bytes.TrimSpace(body)
	if isArray(trimmed) {
		records, err := decodeHazardList(trimmed)
		if err != nil {
			return nil, err
		}
		return &HazardPayload{Shape: HazardBareArray, Records: records}, nil
	}

	var wrapped struct {
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && isArray(wrapped.Answer) {
		records, err := decodeHazardList(wrapped.Answer)
		if err != nil {
			return nil, err
		}
		return &HazardPayload{Shape: HazardWrappedArray, Records: records}, nil
	}
	return &HazardPayload{Shape: HazardNoList, Records: []types.HazardRecord{}}, nil
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func decodeHazardList(raw []byte) ([]types.HazardRecord, error) {
	var records []types.HazardRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &ParseError{Message: "failed to decode hazard list", Cause: err}
	}
	return nonNilHazards(records), nil
}

func nonNilHazards(records []types.HazardRecord) []types.HazardRecord {
	if records == nil {
		return []types.HazardRecord{}
	}
	return records
}

// DecodeCaseIDs decodes an accident-cases response into case numbers.
func DecodeCaseIDs(body []byte) ([]types.CaseNumber, error) {
	if err := schemas.Validate(schemas.AccidentCaseIDs, body); err != nil {
		return nil, &ShapeError{Message: "accident case ids", Cause: err}
	}

	var resp struct {
		IDs []types.CaseNumber `json:"accident_case_ids"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Message: "failed to decode accident case ids", Cause: err}
	}
	if resp.IDs == nil {
		return []types.CaseNumber{}, nil
	}
	return resp.IDs, nil
}

// DecodeObject decodes a TBM section response into a generic object.
func DecodeObject(body []byte) (map[string]any, error) {
	if err := schemas.Validate(schemas.TbmSection, body); err != nil {
		return nil, &ShapeError{Message: "tbm section", Cause: err}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &ParseError{Message: "failed to decode tbm section", Cause: err}
	}
	return obj, nil
}

// DecodeChatAnswer decodes a chat response.
func DecodeChatAnswer(body []byte) (*types.ChatAnswer, error) {
	if err := schemas.Validate(schemas.ChatAnswer, body); err != nil {
		return nil, &ShapeError{Message: "chat answer", Cause: err}
	}

	var answer types.ChatAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, &ParseError{Message: "failed to decode chat answer", Cause: err}
	}
	return &answer, nil
}

// MergeTbm sanitizes each section response and shallow-merges them into one
// briefing. On key collisions the later part wins, so callers pass parts in
// precautions, checklist, management order.
func MergeTbm(parts ...map[string]any) (types.TbmRecord, error) {
	merged := make(map[string]any)
	for _, part := range parts {
		clean, _ := SanitizeArrayStrings(part).(map[string]any)
		for k, v := range clean {
			merged[k] = v
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return types.TbmRecord{}, &ParseError{Message: "failed to re-encode merged tbm", Cause: err}
	}

	var rec types.TbmRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.TbmRecord{}, &ShapeError{Message: "tbm sections must be lists of strings", Cause: err}
	}
	return rec, nil
}
