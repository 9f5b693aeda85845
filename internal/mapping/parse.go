package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/pkg/errors"
)

// ExtractJSON cuts the first balanced-looking JSON object out of a
// model reply by slicing from the first '{' to the last '}'. Replies
// wrapped in markdown fences or prose survive this.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.ErrNoJSONFound
	}
	return s[start : end+1], nil
}

// Parse decodes a model reply into a ColumnMapping. The decode is
// tolerant: header_row defaults to 0, confidence to 0.8, numeric fields
// accept JSON numbers of either flavor, and malformed mapping entries
// are dropped rather than failing the sheet.
func Parse(reply string) (*model.ColumnMapping, error) {
	jsonStr, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("decoding mapping reply: %w", err)
	}

	cm := &model.ColumnMapping{
		HeaderRow:  0,
		Confidence: 0.8,
	}

	if v, ok := asInt(raw["header_row"]); ok {
		cm.HeaderRow = v
	}
	if v, ok := asFloat(raw["confidence"]); ok {
		cm.Confidence = v
	}

	if list, ok := raw["mappings"].([]any); ok {
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := entry["field_name"].(string)
			idx, idxOK := asInt(entry["column_index"])
			if name == "" || !idxOK || idx < 0 {
				continue
			}
			fm := model.FieldMapping{
				FieldName:   name,
				ColumnIndex: idx,
				Confidence:  0.8,
			}
			if h, ok := entry["column_header"].(string); ok {
				fm.ColumnHeader = h
			}
			if c, ok := asFloat(entry["confidence"]); ok {
				fm.Confidence = c
			}
			cm.Mappings = append(cm.Mappings, fm)
		}
	}

	if list, ok := raw["unmatched_columns"].([]any); ok {
		for _, item := range list {
			if v, ok := asInt(item); ok {
				cm.UnmatchedColumns = append(cm.UnmatchedColumns, v)
			}
		}
	}

	return cm, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
