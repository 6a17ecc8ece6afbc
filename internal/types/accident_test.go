package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccidentCase_Unmarshal(t *testing.T) {
	line := `{"id": 17, "chunk_content": "배관 용접 중 화재 발생", "metadata": {"case_no": "1024", "year": 2021, "type": "화재"}}`

	var c AccidentCase
	require.NoError(t, json.Unmarshal([]byte(line), &c))

	assert.Equal(t, "17", c.ID)
	require.NotNil(t, c.Content)
	assert.Equal(t, "배관 용접 중 화재 발생", *c.Content)
	assert.Equal(t, CaseNumber(1024), c.Metadata.CaseNo)
	assert.Contains(t, c.Metadata.Extra, "year")
	assert.NotContains(t, c.Metadata.Extra, "case_no")
}

func TestAccidentCase_RoundTripKeepsMetadata(t *testing.T) {
	line := `{"id":"a1","chunk_content":null,"metadata":{"case_no":7,"site":"A동"}}`

	var c AccidentCase
	require.NoError(t, json.Unmarshal([]byte(line), &c))
	assert.Nil(t, c.Content)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","chunk_content":null,"metadata":{"case_no":7,"site":"A동"}}`, string(out))
}

func TestCaseNumber_Invalid(t *testing.T) {
	var n CaseNumber
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &n))
	assert.NoError(t, json.Unmarshal([]byte(`12.0`), &n))
	assert.Equal(t, CaseNumber(12), n)
}
