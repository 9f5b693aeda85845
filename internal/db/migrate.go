package db

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		dedup_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS project_fields (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		project_id BIGINT NOT NULL,
		field_name VARCHAR(255) NOT NULL,
		field_label VARCHAR(255) NOT NULL,
		field_type VARCHAR(32) NOT NULL DEFAULT 'text',
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		is_dedup_key BOOLEAN NOT NULL DEFAULT FALSE,
		validation_rule TEXT,
		extraction_hint TEXT,
		additional_requirement TEXT,
		display_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_project_fields_project (project_id)
	)`,

	`CREATE TABLE IF NOT EXISTS ai_configs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		api_url VARCHAR(512) NOT NULL,
		model_name VARCHAR(255) NOT NULL,
		api_key VARCHAR(512) NOT NULL,
		temperature DOUBLE NOT NULL DEFAULT 0.1,
		max_tokens INT NOT NULL DEFAULT 4096,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS processing_tasks (
		id VARCHAR(36) PRIMARY KEY,
		project_id BIGINT NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		total_files INT NOT NULL DEFAULT 0,
		processed_files INT NOT NULL DEFAULT 0,
		total_rows INT NOT NULL DEFAULT 0,
		processed_rows INT NOT NULL DEFAULT 0,
		success_count INT NOT NULL DEFAULT 0,
		error_count INT NOT NULL DEFAULT 0,
		batch_label VARCHAR(64),
		source_files JSON,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_tasks_project (project_id),
		INDEX idx_tasks_batch (batch_label)
	)`,

	`CREATE TABLE IF NOT EXISTS task_file_progress (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		task_id VARCHAR(36) NOT NULL,
		file_name VARCHAR(512) NOT NULL,
		file_phase VARCHAR(32) NOT NULL DEFAULT 'waiting',
		sheet_name VARCHAR(255),
		sheet_phase VARCHAR(32),
		ai_confidence DOUBLE,
		mapping_count INT,
		success_count INT NOT NULL DEFAULT 0,
		error_count INT NOT NULL DEFAULT 0,
		total_rows INT NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_progress_task (task_id)
	)`,

	`CREATE TABLE IF NOT EXISTS project_records (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		project_id BIGINT NOT NULL,
		data JSON NOT NULL,
		raw_row TEXT,
		source_file VARCHAR(512),
		source_sheet VARCHAR(255),
		row_index INT NOT NULL DEFAULT 0,
		batch_label VARCHAR(64),
		status VARCHAR(32) NOT NULL DEFAULT 'success',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_records_project (project_id),
		INDEX idx_records_batch (project_id, batch_label)
	)`,
}

// Migrate applies the schema. Statements are idempotent so running at
// every startup is safe.
func Migrate(conn *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
	}
	return nil
}
