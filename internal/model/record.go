package model

import (
	"fmt"
	"strings"
	"time"
)

const RecordStatusSuccess = "success"

// Record is one successfully imported row. Data holds the cleaned value
// per mapped field name; rejected rows are never persisted as records.
type Record struct {
	ID          int64             `json:"id" db:"id"`
	ProjectID   int64             `json:"project_id" db:"project_id"`
	Data        map[string]string `json:"data" db:"data"`
	RawRow      string            `json:"raw_row,omitempty" db:"raw_row"`
	SourceFile  string            `json:"source_file,omitempty" db:"source_file"`
	SourceSheet string            `json:"source_sheet,omitempty" db:"source_sheet"`
	RowIndex    int               `json:"row_index" db:"row_index"`
	BatchLabel  string            `json:"batch_label,omitempty" db:"batch_label"`
	Status      string            `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// FormatRawRow serializes the original cell values as "1:v1;2:v2;...;"
// with 1-indexed columns.
func FormatRawRow(row []string) string {
	var b strings.Builder
	for i, v := range row {
		fmt.Fprintf(&b, "%d:%s;", i+1, v)
	}
	return b.String()
}
