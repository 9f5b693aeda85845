// Package mapping builds the column-analysis prompts and parses the
// model's JSON reply into a ColumnMapping.
package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kociii/reData/internal/model"
)

// typeRule is the per-type guidance embedded in the system prompt. Only
// rules for types actually present in the project are included.
type typeRule struct {
	mustSatisfy string
	pitfall     string
}

var typeRules = map[model.FieldType]typeRule{
	model.FieldTypePhone: {
		mustSatisfy: "sample values are mostly digits, optionally with a leading + or separators",
		pitfall:     "do not map ID numbers, order numbers or zip codes to phone",
	},
	model.FieldTypeEmail: {
		mustSatisfy: "sample values contain an @ with a domain after it",
		pitfall:     "a column of usernames without @ is not an email column",
	},
	model.FieldTypeNumber: {
		mustSatisfy: "sample values parse as numbers after removing separators",
		pitfall:     "do not map phone numbers or ID numbers to a generic number field",
	},
	model.FieldTypeDate: {
		mustSatisfy: "sample values look like dates or datetimes in any common format",
		pitfall:     "a plain year column or a serial counter is usually not a date",
	},
	model.FieldTypeURL: {
		mustSatisfy: "sample values start with http, https or www, or look like domains",
		pitfall:     "email addresses are not URLs",
	},
	model.FieldTypeCompany: {
		mustSatisfy: "sample values are organization names",
		pitfall:     "person names and addresses are not companies",
	},
	model.FieldTypeName: {
		mustSatisfy: "sample values are person names",
		pitfall:     "company names and titles are not person names",
	},
	model.FieldTypeAddress: {
		mustSatisfy: "sample values are street or regional addresses",
		pitfall:     "a bare city or country column is a weak address match; lower the confidence",
	},
	model.FieldTypeIDCard: {
		mustSatisfy: "sample values are long fixed-width identity numbers",
		pitfall:     "phone numbers are shorter; do not confuse the two",
	},
	model.FieldTypeText: {
		mustSatisfy: "any textual content fits",
		pitfall:     "prefer a more specific field when one also matches",
	},
}

// BuildSystemPrompt renders the analysis instructions with the rubric
// for exactly the field types the project uses.
func BuildSystemPrompt(fields []model.FieldDefinition) string {
	var b strings.Builder

	b.WriteString("You are a spreadsheet column analyst. You map spreadsheet columns to target fields.\n\n")
	b.WriteString("For each target field, find the column whose header meaning AND sample content both match. ")
	b.WriteString("Both must agree; a matching header over non-matching samples is not a match. ")
	b.WriteString("When unsure, leave the field unmapped. Prefer under-mapping over wrong mapping.\n\n")

	b.WriteString("Target fields:\n")
	seen := make(map[model.FieldType]bool)
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s (%s, type %s)", f.Name, f.Label, f.Type)
		if f.Required {
			b.WriteString(" [required]")
		}
		if f.ExtractionHint != "" {
			fmt.Fprintf(&b, " hint: %s", f.ExtractionHint)
		}
		if f.AdditionalRequirement != "" {
			fmt.Fprintf(&b, " requirement: %s", f.AdditionalRequirement)
		}
		b.WriteString("\n")
		seen[f.Type] = true
	}

	b.WriteString("\nType rules:\n")
	for _, f := range fields {
		rule, ok := typeRules[f.Type]
		if !ok || !seen[f.Type] {
			continue
		}
		seen[f.Type] = false
		fmt.Fprintf(&b, "- %s: must satisfy: %s. Pitfall: %s.\n", f.Type, rule.mustSatisfy, rule.pitfall)
	}

	b.WriteString("\nReply with JSON only, no prose, in this shape:\n")
	b.WriteString(`{"header_row": 0, "mappings": [{"field_name": "...", "column_index": 0, "column_header": "...", "confidence": 0.9}], "confidence": 0.85, "unmatched_columns": [3]}`)
	b.WriteString("\n\nColumn indices and header_row are 0-based. Use header_row -1 when the sheet has no header row.\n")

	return b.String()
}

// ColumnSamples extracts, per column, the first non-empty values from
// the leading sample rows. maxRows bounds the rows scanned and
// maxValues the samples kept per column.
func ColumnSamples(rows [][]string, maxRows, maxValues int) map[int][]string {
	samples := make(map[int][]string)
	limit := len(rows)
	if maxRows < limit {
		limit = maxRows
	}
	for r := 0; r < limit; r++ {
		for c, v := range rows[r] {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if len(samples[c]) < maxValues {
				samples[c] = append(samples[c], v)
			}
		}
	}
	return samples
}

// BuildUserPrompt renders the sheet's first row and per-column samples
// from the rows below it, so headers and content can be judged
// separately.
func BuildUserPrompt(sheetName string, rows [][]string, maxRows, maxValues int) string {
	var header []string
	var body [][]string
	if len(rows) > 0 {
		header = rows[0]
		body = rows[1:]
	}
	samples := ColumnSamples(body, maxRows, maxValues)

	width := len(header)
	for c := range samples {
		if c+1 > width {
			width = c + 1
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %q, %d rows.\n", sheetName, len(rows))
	b.WriteString("First row (usually headers; decide header_row yourself):\n")
	for c := 0; c < width; c++ {
		h := ""
		if c < len(header) {
			h = strings.TrimSpace(header[c])
		}
		fmt.Fprintf(&b, "column %d: %q\n", c, h)
	}
	b.WriteString("\nSamples from the rows below (empty cells skipped):\n")
	for c := 0; c < width; c++ {
		vals := samples[c]
		if len(vals) == 0 {
			fmt.Fprintf(&b, "column %d: (empty)\n", c)
			continue
		}
		quoted := make([]string, len(vals))
		for i, v := range vals {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, "column %d: %s\n", c, strings.Join(quoted, ", "))
	}
	b.WriteString("\nMap the columns to the target fields.")
	return b.String()
}

// BuildRequestPreview renders a compact JSON summary of an outgoing
// analysis request, suitable for surfacing to observers.
func BuildRequestPreview(modelName, sheetName string, fieldCount, columnCount int) string {
	preview := map[string]any{
		"model":        modelName,
		"sheet":        sheetName,
		"field_count":  fieldCount,
		"column_count": columnCount,
	}
	raw, _ := json.Marshal(preview)
	return string(raw)
}
