// Package processing runs import tasks end to end: fetch workbooks,
// analyze columns with the configured AI endpoint, normalize and
// validate rows, dedup, and persist records while keeping the ledger
// and observers current.
package processing

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kociii/reData/internal/ai"
	"github.com/kociii/reData/internal/clean"
	"github.com/kociii/reData/internal/control"
	"github.com/kociii/reData/internal/db"
	"github.com/kociii/reData/internal/events"
	"github.com/kociii/reData/internal/excel"
	"github.com/kociii/reData/internal/mapping"
	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/internal/progress"
	"github.com/kociii/reData/internal/storage"
	"github.com/kociii/reData/pkg/errors"
)

// AIClient is the completion surface the orchestrator needs.
type AIClient interface {
	CompleteStream(ctx context.Context, req ai.Request, onDelta func(string)) (string, error)
}

// Config tunes the processing loop. Zero values fall back to the
// defaults the rest of the system assumes.
type Config struct {
	SampleRows       int
	SampleValues     int
	PausePoll        time.Duration
	BlankRowLimit    int
	ProgressInterval int
}

func (c *Config) applyDefaults() {
	if c.SampleRows <= 0 {
		c.SampleRows = 5
	}
	if c.SampleValues <= 0 {
		c.SampleValues = 5
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 100 * time.Millisecond
	}
	if c.BlankRowLimit <= 0 {
		c.BlankRowLimit = 10
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 10
	}
}

type Orchestrator struct {
	repo     db.Repository
	ledger   *progress.Ledger
	registry *control.Registry
	notifier events.Notifier
	aiClient AIClient
	decoder  excel.Decoder
	source   storage.Source
	oracle   *Oracle
	cfg      Config
	log      zerolog.Logger
}

func NewOrchestrator(
	repo db.Repository,
	ledger *progress.Ledger,
	registry *control.Registry,
	notifier events.Notifier,
	aiClient AIClient,
	decoder excel.Decoder,
	source storage.Source,
	cfg Config,
	log zerolog.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		repo:     repo,
		ledger:   ledger,
		registry: registry,
		notifier: notifier,
		aiClient: aiClient,
		decoder:  decoder,
		source:   source,
		oracle:   NewOracle(repo),
		cfg:      cfg,
		log:      log.With().Str("component", "processing").Logger(),
	}
}

// Start validates the request, creates the task and launches the run in
// a detached goroutine. The returned response carries the task id and
// batch label; progress flows through the ledger and events.
func (o *Orchestrator) Start(ctx context.Context, req model.StartRequest) (*model.StartResponse, error) {
	project, err := o.repo.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	fields, err := o.repo.ListFields(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.ErrNoFields
	}

	var endpoint *model.AIEndpoint
	if req.AIEndpointID != nil {
		endpoint, err = o.repo.GetAIEndpoint(ctx, *req.AIEndpointID)
	} else {
		endpoint, err = o.repo.GetDefaultAIEndpoint(ctx)
	}
	if err != nil {
		return nil, err
	}

	batchLabel, err := nextBatchLabel(ctx, o.repo, project.ID, time.Now())
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Status:      model.TaskStatusProcessing,
		TotalFiles:  len(req.FilePaths),
		BatchLabel:  batchLabel,
		SourceFiles: req.FilePaths,
	}
	if err := o.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	ctl := o.registry.Register(task.ID)

	// The run outlives the HTTP request that started it.
	go o.run(context.Background(), task, project, fields, endpoint, ctl)

	return &model.StartResponse{
		TaskID:      task.ID,
		BatchLabel:  batchLabel,
		ProjectID:   project.ID,
		Status:      string(task.Status),
		SourceFiles: req.FilePaths,
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, task *model.Task, project *model.Project, fields []model.FieldDefinition, endpoint *model.AIEndpoint, ctl *control.Control) {
	defer o.registry.Remove(task.ID)

	log := o.log.With().Str("task_id", task.ID).Int64("project_id", project.ID).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("processing panicked")
			o.finish(ctx, task, false, fmt.Errorf("internal failure: %v", p), log)
		}
	}()

	log.Info().Int("files", task.TotalFiles).Str("batch", task.BatchLabel).Msg("processing started")

	cancelled := false
	var runErr error

	for fileIdx, path := range task.SourceFiles {
		if ctl.Cancelled() {
			cancelled = true
			break
		}
		o.waitWhilePaused(ctl)
		if ctl.Cancelled() {
			cancelled = true
			break
		}

		fileName := filepath.Base(path)
		o.notifier.Publish(ctx, model.Event{
			Event:       model.EventFileStart,
			TaskID:      task.ID,
			CurrentFile: model.StrPtr(fileName),
		})
		o.upsert(ctx, model.ProgressUpdate{
			TaskID:    task.ID,
			FileName:  fileName,
			FilePhase: model.StrPtr(model.FilePhaseProcessing),
		})

		sheets, err := o.loadWorkbook(ctx, path, ctl)
		if err == errRunCancelled {
			cancelled = true
			break
		}
		if err != nil {
			log.Error().Err(err).Str("file", fileName).Msg("failed to load workbook")
			o.failFile(ctx, task, fileName, err)
			task.ProcessedFiles = fileIdx + 1
			o.persistTaskCounters(ctx, task)
			continue
		}

		var fileDone bool
		cancelled, fileDone, runErr = o.processFile(ctx, task, project, fields, endpoint, ctl, fileName, sheets, log)

		task.ProcessedFiles = fileIdx + 1
		if runErr != nil {
			// A storage failure means records are being lost; finishing
			// the run would report work that never happened.
			log.Error().Err(runErr).Str("file", fileName).Msg("aborting task")
			o.upsert(ctx, model.ProgressUpdate{
				TaskID:       task.ID,
				FileName:     fileName,
				FilePhase:    model.StrPtr(model.FilePhaseError),
				ErrorMessage: model.StrPtr(runErr.Error()),
			})
			o.persistTaskCounters(ctx, task)
			break
		}
		if fileDone {
			o.upsert(ctx, model.ProgressUpdate{
				TaskID:    task.ID,
				FileName:  fileName,
				FilePhase: model.StrPtr(model.FilePhaseDone),
			})
			o.notifier.Publish(ctx, model.Event{
				Event:         model.EventFileComplete,
				TaskID:        task.ID,
				CurrentFile:   model.StrPtr(fileName),
				ProcessedRows: model.IntPtr(task.ProcessedRows),
				SuccessCount:  model.IntPtr(task.SuccessCount),
				ErrorCount:    model.IntPtr(task.ErrorCount),
			})
		}
		o.persistTaskCounters(ctx, task)

		if cancelled {
			break
		}
	}

	o.finish(ctx, task, cancelled, runErr, log)
}

// processFile walks the sheets of one decoded workbook. fileDone is
// false when cancellation hit mid-file; a non-nil error is fatal to the
// whole task.
func (o *Orchestrator) processFile(ctx context.Context, task *model.Task, project *model.Project, fields []model.FieldDefinition, endpoint *model.AIEndpoint, ctl *control.Control, fileName string, sheets []excel.Sheet, log zerolog.Logger) (cancelled, fileDone bool, err error) {
	for _, sheet := range sheets {
		if ctl.Cancelled() {
			return true, false, nil
		}

		o.notifier.Publish(ctx, model.Event{
			Event:        model.EventSheetStart,
			TaskID:       task.ID,
			CurrentFile:  model.StrPtr(fileName),
			CurrentSheet: model.StrPtr(sheet.Name),
		})

		if len(sheet.Rows) == 0 {
			o.upsert(ctx, model.ProgressUpdate{
				TaskID:       task.ID,
				FileName:     fileName,
				SheetName:    model.StrPtr(sheet.Name),
				SheetPhase:   model.StrPtr(model.SheetPhaseDone),
				TotalRows:    model.IntPtr(0),
				SuccessCount: model.IntPtr(0),
				ErrorCount:   model.IntPtr(0),
			})
			o.notifier.Publish(ctx, model.Event{
				Event:             model.EventSheetComplete,
				TaskID:            task.ID,
				CurrentFile:       model.StrPtr(fileName),
				CurrentSheet:      model.StrPtr(sheet.Name),
				SheetTotalRows:    model.IntPtr(0),
				SheetSuccessCount: model.IntPtr(0),
				SheetErrorCount:   model.IntPtr(0),
			})
			continue
		}

		cm, err := o.analyzeSheet(ctx, task, fields, endpoint, fileName, sheet)
		if err != nil {
			// A failed analysis spoils only this sheet.
			log.Warn().Err(err).Str("file", fileName).Str("sheet", sheet.Name).Msg("column analysis failed")
			task.ErrorCount++
			o.upsert(ctx, model.ProgressUpdate{
				TaskID:       task.ID,
				FileName:     fileName,
				SheetName:    model.StrPtr(sheet.Name),
				SheetPhase:   model.StrPtr(model.SheetPhaseError),
				ErrorCount:   model.IntPtr(1),
				ErrorMessage: model.StrPtr(err.Error()),
			})
			o.notifier.Publish(ctx, model.Event{
				Event:        model.EventError,
				TaskID:       task.ID,
				CurrentFile:  model.StrPtr(fileName),
				CurrentSheet: model.StrPtr(sheet.Name),
				Message:      model.StrPtr(err.Error()),
			})
			continue
		}

		mappingByName := make(map[string]int, len(cm.Mappings))
		for _, m := range cm.Mappings {
			mappingByName[m.FieldName] = m.ColumnIndex
		}
		o.notifier.Publish(ctx, model.Event{
			Event:        model.EventColumnMapping,
			TaskID:       task.ID,
			CurrentFile:  model.StrPtr(fileName),
			CurrentSheet: model.StrPtr(sheet.Name),
			Confidence:   model.FloatPtr(cm.Confidence),
			Mappings:     mappingByName,
		})
		o.upsert(ctx, model.ProgressUpdate{
			TaskID:       task.ID,
			FileName:     fileName,
			SheetName:    model.StrPtr(sheet.Name),
			SheetPhase:   model.StrPtr(model.SheetPhaseImporting),
			AIConfidence: model.FloatPtr(cm.Confidence),
			MappingCount: model.IntPtr(len(cm.Mappings)),
		})

		done, impErr := o.importSheet(ctx, task, project, fields, ctl, fileName, sheet, cm, log)
		if impErr != nil {
			return false, false, impErr
		}
		if !done {
			return true, false, nil
		}
	}
	return false, true, nil
}

func (o *Orchestrator) analyzeSheet(ctx context.Context, task *model.Task, fields []model.FieldDefinition, endpoint *model.AIEndpoint, fileName string, sheet excel.Sheet) (*model.ColumnMapping, error) {
	o.upsert(ctx, model.ProgressUpdate{
		TaskID:     task.ID,
		FileName:   fileName,
		SheetName:  model.StrPtr(sheet.Name),
		SheetPhase: model.StrPtr(model.SheetPhaseAIAnalyzing),
	})
	o.notifier.Publish(ctx, model.Event{
		Event:        model.EventAIAnalyzing,
		TaskID:       task.ID,
		CurrentFile:  model.StrPtr(fileName),
		CurrentSheet: model.StrPtr(sheet.Name),
	})

	systemPrompt := mapping.BuildSystemPrompt(fields)
	userPrompt := mapping.BuildUserPrompt(sheet.Name, sheet.Rows, o.cfg.SampleRows, o.cfg.SampleValues)

	columnCount := 0
	for _, row := range sheet.Rows {
		if len(row) > columnCount {
			columnCount = len(row)
		}
	}
	preview := mapping.BuildRequestPreview(endpoint.ModelName, sheet.Name, len(fields), columnCount)
	o.notifier.Publish(ctx, model.Event{
		Event:        model.EventAIRequest,
		TaskID:       task.ID,
		CurrentFile:  model.StrPtr(fileName),
		CurrentSheet: model.StrPtr(sheet.Name),
		Message:      model.StrPtr(preview),
	})

	reply, err := o.aiClient.CompleteStream(ctx, ai.Request{
		URL:          endpoint.APIURL,
		APIKey:       endpoint.APIKey,
		Model:        endpoint.ModelName,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  endpoint.Temperature,
		MaxTokens:    endpoint.MaxTokens,
		JSONMode:     true,
	}, func(delta string) {
		o.notifier.Publish(ctx, model.Event{
			Event:        model.EventAIResponse,
			TaskID:       task.ID,
			CurrentFile:  model.StrPtr(fileName),
			CurrentSheet: model.StrPtr(sheet.Name),
			Message:      model.StrPtr(delta),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing columns: %w", err)
	}

	return mapping.Parse(reply)
}

// importSheet runs the row loop. done is false when cancellation
// interrupted the sheet; a failed record write is returned as a fatal
// error after the partial counters are flushed.
func (o *Orchestrator) importSheet(ctx context.Context, task *model.Task, project *model.Project, fields []model.FieldDefinition, ctl *control.Control, fileName string, sheet excel.Sheet, cm *model.ColumnMapping, log zerolog.Logger) (done bool, err error) {
	fieldByName := make(map[string]model.FieldDefinition, len(fields))
	for _, f := range fields {
		fieldByName[f.Name] = f
	}
	colByField := make(map[string]int, len(cm.Mappings))
	for _, m := range cm.Mappings {
		if _, ok := fieldByName[m.FieldName]; ok {
			colByField[m.FieldName] = m.ColumnIndex
		}
	}

	// A required field with no mapped column rejects every row of the
	// sheet the same way.
	var unmappedRequired []string
	for _, f := range fields {
		if f.Required {
			if _, ok := colByField[f.Name]; !ok {
				unmappedRequired = append(unmappedRequired, f.Name)
			}
		}
	}

	startRow := cm.HeaderRow + 1
	if cm.HeaderRow < 0 {
		startRow = 0
	}

	var total, success, errs int
	blankRun := 0

	for r := startRow; r < len(sheet.Rows); r++ {
		if ctl.Cancelled() {
			o.flushSheet(ctx, task, fileName, sheet.Name, total, success, errs)
			return false, nil
		}
		o.waitWhilePaused(ctl)
		if ctl.Cancelled() {
			o.flushSheet(ctx, task, fileName, sheet.Name, total, success, errs)
			return false, nil
		}

		row := sheet.Rows[r]
		if isBlankRow(row) {
			blankRun++
			if blankRun >= o.cfg.BlankRowLimit {
				break
			}
			continue
		}
		blankRun = 0
		total++

		data, vErrs := o.extractRow(row, fields, colByField, unmappedRequired)

		switch {
		case len(vErrs) > 0:
			errs++
		default:
			dup, err := o.oracle.IsDuplicate(ctx, project, fields, data)
			if err != nil {
				// Dedup is advisory; a lookup failure must not reject
				// the row.
				log.Warn().Err(err).Int("row", r).Msg("dedup lookup failed")
				dup = false
			}
			if dup {
				break
			}

			rec := &model.Record{
				ProjectID:   project.ID,
				Data:        data,
				RawRow:      model.FormatRawRow(row),
				SourceFile:  fileName,
				SourceSheet: sheet.Name,
				RowIndex:    r,
				BatchLabel:  task.BatchLabel,
				Status:      model.RecordStatusSuccess,
			}
			if err := o.repo.InsertRecord(ctx, rec); err != nil {
				// A record write failing is a store problem, not a row
				// problem; carrying on would silently drop data.
				log.Error().Err(err).Int("row", r).Msg("failed to insert record")
				errs++
				o.flushSheet(ctx, task, fileName, sheet.Name, total, success, errs)
				o.upsert(ctx, model.ProgressUpdate{
					TaskID:       task.ID,
					FileName:     fileName,
					SheetName:    model.StrPtr(sheet.Name),
					SheetPhase:   model.StrPtr(model.SheetPhaseError),
					ErrorMessage: model.StrPtr(err.Error()),
				})
				return false, fmt.Errorf("inserting record: %w", err)
			}
			success++
		}

		if total%o.cfg.ProgressInterval == 0 {
			o.notifier.Publish(ctx, model.Event{
				Event:         model.EventRowProcessed,
				TaskID:        task.ID,
				CurrentFile:   model.StrPtr(fileName),
				CurrentSheet:  model.StrPtr(sheet.Name),
				CurrentRow:    model.IntPtr(r),
				ProcessedRows: model.IntPtr(task.ProcessedRows + total),
				SuccessCount:  model.IntPtr(task.SuccessCount + success),
				ErrorCount:    model.IntPtr(task.ErrorCount + errs),
			})
		}
	}

	task.TotalRows += total
	task.ProcessedRows += total
	task.SuccessCount += success
	task.ErrorCount += errs

	o.upsert(ctx, model.ProgressUpdate{
		TaskID:       task.ID,
		FileName:     fileName,
		SheetName:    model.StrPtr(sheet.Name),
		SheetPhase:   model.StrPtr(model.SheetPhaseDone),
		TotalRows:    model.IntPtr(total),
		SuccessCount: model.IntPtr(success),
		ErrorCount:   model.IntPtr(errs),
	})
	o.notifier.Publish(ctx, model.Event{
		Event:             model.EventSheetComplete,
		TaskID:            task.ID,
		CurrentFile:       model.StrPtr(fileName),
		CurrentSheet:      model.StrPtr(sheet.Name),
		SheetTotalRows:    model.IntPtr(total),
		SheetSuccessCount: model.IntPtr(success),
		SheetErrorCount:   model.IntPtr(errs),
	})
	return true, nil
}

// extractRow cleans and validates one row against the mapped fields.
// The returned messages classify the row; an empty slice means the row
// is importable.
func (o *Orchestrator) extractRow(row []string, fields []model.FieldDefinition, colByField map[string]int, unmappedRequired []string) (map[string]string, []string) {
	data := make(map[string]string, len(colByField))
	var vErrs []string

	for _, name := range unmappedRequired {
		vErrs = append(vErrs, (&errors.ValidationError{Field: name, Message: "required field has no mapped column"}).Error())
	}

	for _, f := range fields {
		col, ok := colByField[f.Name]
		if !ok {
			continue
		}
		raw := ""
		inRange := col < len(row)
		if inRange {
			raw = row[col]
		}
		cleaned := clean.Clean(raw, f.Type)
		// Only in-range columns contribute record data.
		if inRange {
			data[f.Name] = cleaned
		}

		if f.Required && cleaned == "" {
			vErrs = append(vErrs, (&errors.ValidationError{Field: f.Name, Message: "required value is empty"}).Error())
			continue
		}
		if cleaned != "" && !clean.Validate(cleaned, f.ValidationRule) {
			vErrs = append(vErrs, (&errors.ValidationError{Field: f.Name, Message: "value does not match validation rule"}).Error())
		}
	}
	return data, vErrs
}

var errRunCancelled = stderrors.New("run cancelled")

type decodeResult struct {
	sheets []excel.Sheet
	err    error
}

// loadWorkbook fetches and decodes in a separate goroutine so a cancel
// during a slow download or a large workbook is observed promptly. An
// abandoned decode finishes on its own and its result is dropped.
func (o *Orchestrator) loadWorkbook(ctx context.Context, path string, ctl *control.Control) ([]excel.Sheet, error) {
	ch := make(chan decodeResult, 1)
	go func() {
		rc, err := o.source.Download(ctx, path)
		if err != nil {
			ch <- decodeResult{err: err}
			return
		}
		defer rc.Close()
		sheets, err := o.decoder.Decode(rc)
		ch <- decodeResult{sheets: sheets, err: err}
	}()

	for {
		select {
		case res := <-ch:
			return res.sheets, res.err
		case <-time.After(o.cfg.PausePoll):
			if ctl.Cancelled() {
				return nil, errRunCancelled
			}
		}
	}
}

// flushSheet records the partial counters of a sheet interrupted by
// cancellation so the ledger does not lose work already done.
func (o *Orchestrator) flushSheet(ctx context.Context, task *model.Task, fileName, sheetName string, total, success, errs int) {
	task.TotalRows += total
	task.ProcessedRows += total
	task.SuccessCount += success
	task.ErrorCount += errs

	o.upsert(ctx, model.ProgressUpdate{
		TaskID:       task.ID,
		FileName:     fileName,
		SheetName:    model.StrPtr(sheetName),
		TotalRows:    model.IntPtr(total),
		SuccessCount: model.IntPtr(success),
		ErrorCount:   model.IntPtr(errs),
	})
}

func (o *Orchestrator) failFile(ctx context.Context, task *model.Task, fileName string, cause error) {
	task.ErrorCount++
	o.upsert(ctx, model.ProgressUpdate{
		TaskID:       task.ID,
		FileName:     fileName,
		FilePhase:    model.StrPtr(model.FilePhaseError),
		ErrorMessage: model.StrPtr(cause.Error()),
	})
	o.notifier.Publish(ctx, model.Event{
		Event:       model.EventError,
		TaskID:      task.ID,
		CurrentFile: model.StrPtr(fileName),
		Message:     model.StrPtr(cause.Error()),
	})
}

func (o *Orchestrator) finish(ctx context.Context, task *model.Task, cancelled bool, runErr error, log zerolog.Logger) {
	o.persistTaskCounters(ctx, task)

	status := model.TaskStatusCompleted
	eventName := model.EventCompleted
	var message *string
	switch {
	case runErr != nil:
		status = model.TaskStatusError
		eventName = model.EventError
		message = model.StrPtr(runErr.Error())
	case cancelled:
		status = model.TaskStatusCancelled
		eventName = model.EventCancelled
	}

	if err := o.repo.UpdateTaskStatus(ctx, task.ID, status); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("failed to persist terminal status")
	}
	o.notifier.Publish(ctx, model.Event{
		Event:         eventName,
		TaskID:        task.ID,
		TotalRows:     model.IntPtr(task.TotalRows),
		ProcessedRows: model.IntPtr(task.ProcessedRows),
		SuccessCount:  model.IntPtr(task.SuccessCount),
		ErrorCount:    model.IntPtr(task.ErrorCount),
		Message:       message,
	})

	log.Info().
		Str("status", string(status)).
		Int("rows", task.ProcessedRows).
		Int("success", task.SuccessCount).
		Int("errors", task.ErrorCount).
		Msg("processing finished")
}

func (o *Orchestrator) persistTaskCounters(ctx context.Context, task *model.Task) {
	if err := o.repo.UpdateTaskProgress(ctx, task); err != nil {
		o.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to persist task counters")
	}
}

func (o *Orchestrator) upsert(ctx context.Context, u model.ProgressUpdate) {
	if err := o.ledger.Upsert(ctx, u); err != nil {
		o.log.Error().Err(err).Str("task_id", u.TaskID).Str("file", u.FileName).Msg("failed to update progress ledger")
	}
}

func (o *Orchestrator) waitWhilePaused(ctl *control.Control) {
	for ctl.Paused() && !ctl.Cancelled() {
		time.Sleep(o.cfg.PausePoll)
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
