package model

import "time"

type StartRequest struct {
	ProjectID    int64    `json:"project_id" binding:"required"`
	FilePaths    []string `json:"file_paths" binding:"required,min=1"`
	AIEndpointID *int64   `json:"ai_config_id,omitempty"`
}

type StartResponse struct {
	TaskID      string   `json:"task_id"`
	BatchLabel  string   `json:"batch_label"`
	ProjectID   int64    `json:"project_id"`
	Status      string   `json:"status"`
	SourceFiles []string `json:"source_files"`
}

type RollbackRequest struct {
	ProjectID  int64  `json:"project_id" binding:"required"`
	BatchLabel string `json:"batch_label" binding:"required"`
}

type RollbackResult struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deleted_count"`
	Message      string `json:"message"`
}

// BatchDetail is one import batch with its live record count. A batch
// whose records were all rolled back reports status "rolled_back".
type BatchDetail struct {
	BatchLabel   string    `json:"batch_label"`
	TaskID       string    `json:"task_id"`
	SourceFile   string    `json:"source_file"`
	ProjectID    int64     `json:"project_id"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
	TotalRecords int64     `json:"total_records"`
}
