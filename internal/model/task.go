package model

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusError      TaskStatus = "error"
)

// IsTerminal reports whether a task in this status can never change again.
// paused and processing toggle freely; everything past them is absorbing.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled || s == TaskStatusError
}

// Task is one end-to-end import run over a set of files.
type Task struct {
	ID             string     `json:"task_id" db:"id"`
	ProjectID      int64      `json:"project_id" db:"project_id"`
	Status         TaskStatus `json:"status" db:"status"`
	TotalFiles     int        `json:"total_files" db:"total_files"`
	ProcessedFiles int        `json:"processed_files" db:"processed_files"`
	TotalRows      int        `json:"total_rows" db:"total_rows"`
	ProcessedRows  int        `json:"processed_rows" db:"processed_rows"`
	SuccessCount   int        `json:"success_count" db:"success_count"`
	ErrorCount     int        `json:"error_count" db:"error_count"`
	BatchLabel     string     `json:"batch_label,omitempty" db:"batch_label"`
	SourceFiles    []string   `json:"source_files,omitempty" db:"source_files"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
