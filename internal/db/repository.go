package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/pkg/errors"
)

// Repository is the data access surface of the processing core. The
// orchestrator and handlers depend on this interface, never on *sql.DB.
type Repository interface {
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	ListFields(ctx context.Context, projectID int64) ([]model.FieldDefinition, error)
	GetAIEndpoint(ctx context.Context, id int64) (*model.AIEndpoint, error)
	GetDefaultAIEndpoint(ctx context.Context) (*model.AIEndpoint, error)

	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, projectID int64) ([]model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	UpdateTaskProgress(ctx context.Context, task *model.Task) error
	CountBatchesWithPrefix(ctx context.Context, projectID int64, prefix string) (int, error)

	FindProgress(ctx context.Context, taskID, fileName string, sheetName *string) (*model.ProgressRow, error)
	InsertProgress(ctx context.Context, row *model.ProgressRow) error
	UpdateProgress(ctx context.Context, row *model.ProgressRow) error
	ListProgress(ctx context.Context, taskID string) ([]model.ProgressRow, error)
	DeleteProgress(ctx context.Context, taskID string) error

	InsertRecord(ctx context.Context, rec *model.Record) error
	FindDuplicate(ctx context.Context, projectID int64, keys map[string]string) (bool, error)
	CountRecordsByBatch(ctx context.Context, projectID int64, batchLabel string) (int64, error)
	DeleteRecordsByBatch(ctx context.Context, projectID int64, batchLabel string) (int64, error)
	ListBatches(ctx context.Context, projectID int64) ([]model.BatchDetail, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, dedup_enabled, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.DedupEnabled, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return &p, nil
}

func (r *repository) ListFields(ctx context.Context, projectID int64) ([]model.FieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, field_name, field_label, field_type, is_required, is_dedup_key,
		        COALESCE(validation_rule, ''), COALESCE(extraction_hint, ''),
		        COALESCE(additional_requirement, ''), display_order, created_at
		 FROM project_fields WHERE project_id = ? ORDER BY display_order, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	var fields []model.FieldDefinition
	for rows.Next() {
		var f model.FieldDefinition
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Label, &f.Type, &f.Required,
			&f.IsDedupKey, &f.ValidationRule, &f.ExtractionHint, &f.AdditionalRequirement,
			&f.DisplayOrder, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *repository) scanAIEndpoint(row *sql.Row) (*model.AIEndpoint, error) {
	var e model.AIEndpoint
	err := row.Scan(&e.ID, &e.Name, &e.APIURL, &e.ModelName, &e.APIKey,
		&e.Temperature, &e.MaxTokens, &e.IsDefault, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNoAIConfig
	}
	if err != nil {
		return nil, fmt.Errorf("querying ai config: %w", err)
	}
	return &e, nil
}

func (r *repository) GetAIEndpoint(ctx context.Context, id int64) (*model.AIEndpoint, error) {
	return r.scanAIEndpoint(r.db.QueryRowContext(ctx,
		`SELECT id, name, api_url, model_name, api_key, temperature, max_tokens, is_default, created_at
		 FROM ai_configs WHERE id = ?`, id))
}

func (r *repository) GetDefaultAIEndpoint(ctx context.Context) (*model.AIEndpoint, error) {
	return r.scanAIEndpoint(r.db.QueryRowContext(ctx,
		`SELECT id, name, api_url, model_name, api_key, temperature, max_tokens, is_default, created_at
		 FROM ai_configs WHERE is_default = TRUE ORDER BY id LIMIT 1`))
}

func (r *repository) CreateTask(ctx context.Context, task *model.Task) error {
	files, err := json.Marshal(task.SourceFiles)
	if err != nil {
		return fmt.Errorf("encoding source files: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO processing_tasks
		 (id, project_id, status, total_files, batch_label, source_files)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Status, task.TotalFiles, task.BatchLabel, files)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	var files []byte
	var batch sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, status, total_files, processed_files, total_rows,
		        processed_rows, success_count, error_count, batch_label, source_files,
		        created_at, updated_at
		 FROM processing_tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.ProjectID, &t.Status, &t.TotalFiles, &t.ProcessedFiles, &t.TotalRows,
		&t.ProcessedRows, &t.SuccessCount, &t.ErrorCount, &batch, &files,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	t.BatchLabel = batch.String
	if len(files) > 0 {
		if err := json.Unmarshal(files, &t.SourceFiles); err != nil {
			return nil, fmt.Errorf("decoding source files: %w", err)
		}
	}
	return &t, nil
}

func (r *repository) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	query := `SELECT id, project_id, status, total_files, processed_files, total_rows,
	                 processed_rows, success_count, error_count, batch_label, source_files,
	                 created_at, updated_at
	          FROM processing_tasks`
	args := []any{}
	if projectID > 0 {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var files []byte
		var batch sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Status, &t.TotalFiles, &t.ProcessedFiles,
			&t.TotalRows, &t.ProcessedRows, &t.SuccessCount, &t.ErrorCount, &batch, &files,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.BatchLabel = batch.String
		if len(files) > 0 {
			if err := json.Unmarshal(files, &t.SourceFiles); err != nil {
				return nil, fmt.Errorf("decoding source files: %w", err)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *repository) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE processing_tasks SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (r *repository) UpdateTaskProgress(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_tasks
		 SET processed_files = ?, total_rows = ?, processed_rows = ?,
		     success_count = ?, error_count = ?
		 WHERE id = ?`,
		task.ProcessedFiles, task.TotalRows, task.ProcessedRows,
		task.SuccessCount, task.ErrorCount, task.ID)
	if err != nil {
		return fmt.Errorf("updating task progress: %w", err)
	}
	return nil
}

func (r *repository) CountBatchesWithPrefix(ctx context.Context, projectID int64, prefix string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processing_tasks WHERE project_id = ? AND batch_label LIKE ?`,
		projectID, prefix+"%",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batches: %w", err)
	}
	return n, nil
}

func (r *repository) FindProgress(ctx context.Context, taskID, fileName string, sheetName *string) (*model.ProgressRow, error) {
	query := `SELECT id, task_id, file_name, file_phase, sheet_name, sheet_phase,
	                 ai_confidence, mapping_count, success_count, error_count, total_rows,
	                 error_message, created_at, updated_at
	          FROM task_file_progress WHERE task_id = ? AND file_name = ?`
	args := []any{taskID, fileName}
	if sheetName == nil {
		query += ` AND sheet_name IS NULL`
	} else {
		query += ` AND sheet_name = ?`
		args = append(args, *sheetName)
	}

	var row model.ProgressRow
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&row.ID, &row.TaskID, &row.FileName, &row.FilePhase, &row.SheetName, &row.SheetPhase,
		&row.AIConfidence, &row.MappingCount, &row.SuccessCount, &row.ErrorCount,
		&row.TotalRows, &row.ErrorMessage, &row.CreatedAt, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying progress row: %w", err)
	}
	return &row, nil
}

func (r *repository) InsertProgress(ctx context.Context, row *model.ProgressRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_file_progress
		 (task_id, file_name, file_phase, sheet_name, sheet_phase, ai_confidence,
		  mapping_count, success_count, error_count, total_rows, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.TaskID, row.FileName, row.FilePhase, row.SheetName, row.SheetPhase,
		row.AIConfidence, row.MappingCount, row.SuccessCount, row.ErrorCount,
		row.TotalRows, row.ErrorMessage)
	if err != nil {
		return fmt.Errorf("inserting progress row: %w", err)
	}
	return nil
}

func (r *repository) UpdateProgress(ctx context.Context, row *model.ProgressRow) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_file_progress
		 SET file_phase = ?, sheet_phase = ?, ai_confidence = ?, mapping_count = ?,
		     success_count = ?, error_count = ?, total_rows = ?, error_message = ?
		 WHERE id = ?`,
		row.FilePhase, row.SheetPhase, row.AIConfidence, row.MappingCount,
		row.SuccessCount, row.ErrorCount, row.TotalRows, row.ErrorMessage, row.ID)
	if err != nil {
		return fmt.Errorf("updating progress row: %w", err)
	}
	return nil
}

func (r *repository) ListProgress(ctx context.Context, taskID string) ([]model.ProgressRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, file_name, file_phase, sheet_name, sheet_phase,
		        ai_confidence, mapping_count, success_count, error_count, total_rows,
		        error_message, created_at, updated_at
		 FROM task_file_progress WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying progress rows: %w", err)
	}
	defer rows.Close()

	var out []model.ProgressRow
	for rows.Next() {
		var row model.ProgressRow
		if err := rows.Scan(&row.ID, &row.TaskID, &row.FileName, &row.FilePhase,
			&row.SheetName, &row.SheetPhase, &row.AIConfidence, &row.MappingCount,
			&row.SuccessCount, &row.ErrorCount, &row.TotalRows, &row.ErrorMessage,
			&row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning progress row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) DeleteProgress(ctx context.Context, taskID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM task_file_progress WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("deleting progress rows: %w", err)
	}
	return nil
}

func (r *repository) InsertRecord(ctx context.Context, rec *model.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encoding record data: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO project_records
		 (project_id, data, raw_row, source_file, source_sheet, row_index, batch_label, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ProjectID, data, rec.RawRow, rec.SourceFile, rec.SourceSheet,
		rec.RowIndex, rec.BatchLabel, rec.Status)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// FindDuplicate matches when an existing record in the project carries
// the same value for every dedup key. A row agreeing on only some keys
// is a different entity, not a duplicate.
func (r *repository) FindDuplicate(ctx context.Context, projectID int64, keys map[string]string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}

	conds := make([]string, 0, len(keys))
	args := []any{projectID}
	for name, value := range keys {
		// Field names come from the project schema, not user input, but
		// they still travel through the JSON path as a quoted literal.
		path := fmt.Sprintf(`$."%s"`, strings.ReplaceAll(name, `"`, ``))
		conds = append(conds, fmt.Sprintf(`JSON_UNQUOTE(JSON_EXTRACT(data, '%s')) = ?`, path))
		args = append(args, value)
	}

	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM project_records WHERE project_id = ? AND (%s))`,
		strings.Join(conds, " AND "))

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking duplicates: %w", err)
	}
	return exists, nil
}

func (r *repository) CountRecordsByBatch(ctx context.Context, projectID int64, batchLabel string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_records WHERE project_id = ? AND batch_label = ?`,
		projectID, batchLabel,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batch records: %w", err)
	}
	return n, nil
}

func (r *repository) DeleteRecordsByBatch(ctx context.Context, projectID int64, batchLabel string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM project_records WHERE project_id = ? AND batch_label = ?`,
		projectID, batchLabel)
	if err != nil {
		return 0, fmt.Errorf("deleting batch records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func (r *repository) ListBatches(ctx context.Context, projectID int64) ([]model.BatchDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.batch_label, t.id, t.source_files, t.project_id, t.created_at,
		        (SELECT COUNT(*) FROM project_records pr
		         WHERE pr.project_id = t.project_id AND pr.batch_label = t.batch_label) AS live
		 FROM processing_tasks t
		 WHERE t.project_id = ? AND t.batch_label IS NOT NULL AND t.batch_label <> ''
		 ORDER BY t.created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var out []model.BatchDetail
	for rows.Next() {
		var b model.BatchDetail
		var files []byte
		if err := rows.Scan(&b.BatchLabel, &b.TaskID, &files, &b.ProjectID, &b.CreatedAt, &b.TotalRecords); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		var names []string
		if len(files) > 0 {
			if err := json.Unmarshal(files, &names); err != nil {
				return nil, fmt.Errorf("decoding source files: %w", err)
			}
		}
		b.SourceFile = strings.Join(names, ", ")
		if b.TotalRecords == 0 {
			b.Status = "rolled_back"
		} else {
			b.Status = "active"
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
