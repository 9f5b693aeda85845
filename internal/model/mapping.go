package model

// FieldMapping binds one target field to one spreadsheet column.
type FieldMapping struct {
	FieldName    string  `json:"field_name"`
	ColumnIndex  int     `json:"column_index"`
	ColumnHeader string  `json:"column_header"`
	Confidence   float64 `json:"confidence"`
}

// ColumnMapping is the parsed result of one AI column analysis. It lives
// only for the duration of a sheet; the ledger keeps the confidence and
// mapping count summary.
type ColumnMapping struct {
	HeaderRow        int            `json:"header_row"` // -1 means no header row
	Mappings         []FieldMapping `json:"mappings"`
	Confidence       float64        `json:"confidence"`
	UnmatchedColumns []int          `json:"unmatched_columns"`
}
