package model

import "time"

const (
	FilePhaseWaiting    = "waiting"
	FilePhaseProcessing = "processing"
	FilePhaseDone       = "done"
	FilePhaseError      = "error"

	SheetPhaseWaiting     = "waiting"
	SheetPhaseAIAnalyzing = "ai_analyzing"
	SheetPhaseImporting   = "importing"
	SheetPhaseDone        = "done"
	SheetPhaseError       = "error"
)

// ProgressRow is one durable ledger row. A nil SheetName marks the
// file-level row; (task_id, file_name, sheet_name) is the upsert key.
type ProgressRow struct {
	ID           int64      `json:"id" db:"id"`
	TaskID       string     `json:"task_id" db:"task_id"`
	FileName     string     `json:"file_name" db:"file_name"`
	FilePhase    string     `json:"file_phase" db:"file_phase"`
	SheetName    *string    `json:"sheet_name,omitempty" db:"sheet_name"`
	SheetPhase   *string    `json:"sheet_phase,omitempty" db:"sheet_phase"`
	AIConfidence *float64   `json:"ai_confidence,omitempty" db:"ai_confidence"`
	MappingCount *int       `json:"mapping_count,omitempty" db:"mapping_count"`
	SuccessCount int        `json:"success_count" db:"success_count"`
	ErrorCount   int        `json:"error_count" db:"error_count"`
	TotalRows    int        `json:"total_rows" db:"total_rows"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ProgressUpdate carries the fields of one upsert. Nil means "leave the
// stored value unchanged"; absent rows are created with waiting/zero
// defaults.
type ProgressUpdate struct {
	TaskID       string
	FileName     string
	SheetName    *string
	FilePhase    *string
	SheetPhase   *string
	AIConfidence *float64
	MappingCount *int
	SuccessCount *int
	ErrorCount   *int
	TotalRows    *int
	ErrorMessage *string
}

// SheetProgress is the read-side view of one sheet.
type SheetProgress struct {
	SheetName    string   `json:"sheet_name"`
	SheetPhase   string   `json:"sheet_phase"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`
	MappingCount *int     `json:"mapping_count,omitempty"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	TotalRows    int      `json:"total_rows"`
	ErrorMessage *string  `json:"error_message,omitempty"`
}

// FileProgress is the read-side view of one file with its sheets.
type FileProgress struct {
	FileName     string          `json:"file_name"`
	FilePhase    string          `json:"file_phase"`
	Sheets       []SheetProgress `json:"sheets"`
	TotalRows    int             `json:"total_rows"`
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
}

// TaskProgress is the full reconstructed tree for one task.
type TaskProgress struct {
	TaskID string         `json:"task_id"`
	Files  []FileProgress `json:"files"`
}
