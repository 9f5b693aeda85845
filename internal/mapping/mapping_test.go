package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/pkg/errors"
)

func testFields() []model.FieldDefinition {
	return []model.FieldDefinition{
		{Name: "customer_name", Label: "Customer", Type: model.FieldTypeName, Required: true},
		{Name: "phone", Label: "Phone", Type: model.FieldTypePhone, ExtractionHint: "mobile preferred"},
		{Name: "note", Label: "Note", Type: model.FieldTypeText},
		{Name: "alt_note", Label: "Alt note", Type: model.FieldTypeText},
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt(testFields())

	assert.Contains(t, p, "customer_name")
	assert.Contains(t, p, "[required]")
	assert.Contains(t, p, "hint: mobile preferred")
	assert.Contains(t, p, "header_row")
	assert.Contains(t, p, "under-mapping")

	// Type rules appear once per used type, and only for used types.
	assert.Equal(t, 1, strings.Count(p, "- text: must satisfy"))
	assert.Equal(t, 1, strings.Count(p, "- phone: must satisfy"))
	assert.NotContains(t, p, "- email: must satisfy")
}

func TestColumnSamples(t *testing.T) {
	rows := [][]string{
		{"Name", "", "Phone"},
		{"alice", "", "123"},
		{"", "x", "456"},
		{"bob", "", ""},
		{"carol", "", "789"},
		{"dave", "", "000"}, // beyond maxRows, ignored
	}
	s := ColumnSamples(rows, 5, 3)

	assert.Equal(t, []string{"Name", "alice", "bob"}, s[0])
	assert.Equal(t, []string{"x"}, s[1])
	assert.Equal(t, []string{"Phone", "123", "456"}, s[2])
}

func TestBuildUserPrompt(t *testing.T) {
	rows := [][]string{
		{"Name", "Phone", ""},
		{"alice", "123", ""},
		{"bob", "456", ""},
	}
	p := BuildUserPrompt("Sheet1", rows, 5, 5)

	assert.Contains(t, p, `Sheet "Sheet1"`)

	// Headers and samples are presented separately.
	headerPart, samplePart, found := strings.Cut(p, "Samples from the rows below")
	require.True(t, found)
	assert.Contains(t, headerPart, `column 0: "Name"`)
	assert.Contains(t, headerPart, `column 1: "Phone"`)
	assert.NotContains(t, headerPart, "alice")
	assert.Contains(t, samplePart, `column 0: "alice", "bob"`)
	assert.Contains(t, samplePart, `column 1: "123", "456"`)
	assert.Contains(t, samplePart, "column 2: (empty)")
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("Sure, here it is:\n```json\n{\"a\": 1}\n```\nDone.")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)

	_, err = ExtractJSON("no json here")
	assert.ErrorIs(t, err, errors.ErrNoJSONFound)
}

func TestParseFull(t *testing.T) {
	reply := `{
		"header_row": 2,
		"confidence": 0.91,
		"mappings": [
			{"field_name": "customer_name", "column_index": 0, "column_header": "Name", "confidence": 0.95},
			{"field_name": "phone", "column_index": 3}
		],
		"unmatched_columns": [1, 2]
	}`
	cm, err := Parse(reply)
	require.NoError(t, err)

	assert.Equal(t, 2, cm.HeaderRow)
	assert.InDelta(t, 0.91, cm.Confidence, 1e-9)
	require.Len(t, cm.Mappings, 2)
	assert.Equal(t, "customer_name", cm.Mappings[0].FieldName)
	assert.Equal(t, 0, cm.Mappings[0].ColumnIndex)
	assert.InDelta(t, 0.95, cm.Mappings[0].Confidence, 1e-9)
	// Entry without confidence gets the default.
	assert.InDelta(t, 0.8, cm.Mappings[1].Confidence, 1e-9)
	assert.Equal(t, []int{1, 2}, cm.UnmatchedColumns)
}

func TestParseDefaults(t *testing.T) {
	cm, err := Parse(`{"mappings": []}`)
	require.NoError(t, err)

	assert.Equal(t, 0, cm.HeaderRow)
	assert.InDelta(t, 0.8, cm.Confidence, 1e-9)
	assert.Empty(t, cm.Mappings)
}

func TestParseDropsMalformedEntries(t *testing.T) {
	reply := `{"mappings": [
		{"field_name": "good", "column_index": 1},
		{"field_name": "", "column_index": 2},
		{"column_index": 3},
		{"field_name": "negative", "column_index": -1},
		{"field_name": "no_index"},
		"not an object"
	]}`
	cm, err := Parse(reply)
	require.NoError(t, err)

	require.Len(t, cm.Mappings, 1)
	assert.Equal(t, "good", cm.Mappings[0].FieldName)
}

func TestParseNoHeaderRow(t *testing.T) {
	cm, err := Parse(`{"header_row": -1, "mappings": [{"field_name": "a", "column_index": 0}]}`)
	require.NoError(t, err)
	assert.Equal(t, -1, cm.HeaderRow)
}

func TestParseRejectsBrokenJSON(t *testing.T) {
	_, err := Parse(`{"mappings": [`)
	assert.Error(t, err)
}
