package model

const (
	EventFileStart     = "file_start"
	EventSheetStart    = "sheet_start"
	EventAIAnalyzing   = "ai_analyzing"
	EventAIRequest     = "ai_request"
	EventAIResponse    = "ai_response"
	EventColumnMapping = "column_mapping"
	EventRowProcessed  = "row_processed"
	EventSheetComplete = "sheet_complete"
	EventFileComplete  = "file_complete"
	EventCompleted     = "completed"
	EventCancelled     = "cancelled"
	EventError         = "error"
)

// Event is one progress notification pushed to observers. Fields are
// sparse; only those relevant to the event tag are set.
type Event struct {
	Event         string         `json:"event"`
	TaskID        string         `json:"task_id"`
	CurrentFile   *string        `json:"current_file,omitempty"`
	CurrentSheet  *string        `json:"current_sheet,omitempty"`
	CurrentRow    *int           `json:"current_row,omitempty"`
	TotalRows     *int           `json:"total_rows,omitempty"`
	ProcessedRows *int           `json:"processed_rows,omitempty"`
	SuccessCount  *int           `json:"success_count,omitempty"`
	ErrorCount    *int           `json:"error_count,omitempty"`
	Message       *string        `json:"message,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	Mappings      map[string]int `json:"mappings,omitempty"`

	// Sheet-level deltas, set on sheet_complete only.
	SheetSuccessCount *int `json:"sheet_success_count,omitempty"`
	SheetErrorCount   *int `json:"sheet_error_count,omitempty"`
	SheetTotalRows    *int `json:"sheet_total_rows,omitempty"`
}
