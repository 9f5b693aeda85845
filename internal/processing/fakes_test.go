package processing

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kociii/reData/internal/ai"
	"github.com/kociii/reData/internal/excel"
	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/pkg/errors"
)

// fakeRepo is an in-memory Repository. The processing goroutine and the
// test body touch it concurrently, so every method locks.
type fakeRepo struct {
	mu sync.Mutex

	project  *model.Project
	fields   []model.FieldDefinition
	endpoint *model.AIEndpoint

	tasks    map[string]*model.Task
	progress []*model.ProgressRow
	nextID   int64
	records  []*model.Record

	imported  []map[string]string // dedup-key values of records treated as already imported
	onInsert  func(rec *model.Record)
	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		project: &model.Project{ID: 1, Name: "proj"},
		fields: []model.FieldDefinition{
			{ID: 1, ProjectID: 1, Name: "name", Label: "Name", Type: model.FieldTypeName, Required: true, IsDedupKey: true},
			{ID: 2, ProjectID: 1, Name: "phone", Label: "Phone", Type: model.FieldTypePhone, ValidationRule: `^\+?\d{3,}$`},
		},
		endpoint: &model.AIEndpoint{ID: 1, Name: "default", APIURL: "http://ai.local", ModelName: "m", IsDefault: true},
		tasks:    make(map[string]*model.Task),
	}
}

func (r *fakeRepo) GetProject(_ context.Context, id int64) (*model.Project, error) {
	if r.project == nil || r.project.ID != id {
		return nil, errors.ErrProjectNotFound
	}
	cp := *r.project
	return &cp, nil
}

func (r *fakeRepo) ListFields(_ context.Context, _ int64) ([]model.FieldDefinition, error) {
	return r.fields, nil
}

func (r *fakeRepo) GetAIEndpoint(_ context.Context, _ int64) (*model.AIEndpoint, error) {
	return r.endpoint, nil
}

func (r *fakeRepo) GetDefaultAIEndpoint(_ context.Context) (*model.AIEndpoint, error) {
	if r.endpoint == nil {
		return nil, errors.ErrNoAIConfig
	}
	return r.endpoint, nil
}

func (r *fakeRepo) CreateTask(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeRepo) GetTask(_ context.Context, id string) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, errors.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) ListTasks(_ context.Context, _ int64) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeRepo) UpdateTaskStatus(_ context.Context, id string, status model.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeRepo) UpdateTaskProgress(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[task.ID]
	if !ok {
		return errors.ErrTaskNotFound
	}
	t.ProcessedFiles = task.ProcessedFiles
	t.TotalRows = task.TotalRows
	t.ProcessedRows = task.ProcessedRows
	t.SuccessCount = task.SuccessCount
	t.ErrorCount = task.ErrorCount
	return nil
}

func (r *fakeRepo) CountBatchesWithPrefix(_ context.Context, _ int64, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if strings.HasPrefix(t.BatchLabel, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) FindProgress(_ context.Context, taskID, fileName string, sheetName *string) (*model.ProgressRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.progress {
		if row.TaskID != taskID || row.FileName != fileName {
			continue
		}
		if (row.SheetName == nil) != (sheetName == nil) {
			continue
		}
		if sheetName != nil && *row.SheetName != *sheetName {
			continue
		}
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) InsertProgress(_ context.Context, row *model.ProgressRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.ID = r.nextID
	cp := *row
	r.progress = append(r.progress, &cp)
	return nil
}

func (r *fakeRepo) UpdateProgress(_ context.Context, row *model.ProgressRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.progress {
		if existing.ID == row.ID {
			cp := *row
			r.progress[i] = &cp
			return nil
		}
	}
	return nil
}

func (r *fakeRepo) ListProgress(_ context.Context, taskID string) ([]model.ProgressRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ProgressRow
	for _, row := range r.progress {
		if row.TaskID == taskID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteProgress(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.ProgressRow
	for _, row := range r.progress {
		if row.TaskID != taskID {
			kept = append(kept, row)
		}
	}
	r.progress = kept
	return nil
}

func (r *fakeRepo) InsertRecord(_ context.Context, rec *model.Record) error {
	r.mu.Lock()
	if r.insertErr != nil {
		r.mu.Unlock()
		return r.insertErr
	}
	cp := *rec
	r.records = append(r.records, &cp)
	hook := r.onInsert
	r.mu.Unlock()
	if hook != nil {
		hook(rec)
	}
	return nil
}

// FindDuplicate mirrors the store semantics: every lookup key must
// match the same record.
func (r *fakeRepo) FindDuplicate(_ context.Context, _ int64, keys map[string]string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, data := range r.imported {
		if matchesAllKeys(data, keys) {
			return true, nil
		}
	}
	for _, rec := range r.records {
		if matchesAllKeys(rec.Data, keys) {
			return true, nil
		}
	}
	return false, nil
}

func matchesAllKeys(data map[string]string, keys map[string]string) bool {
	for name, v := range keys {
		if data[name] != v {
			return false
		}
	}
	return true
}

func (r *fakeRepo) CountRecordsByBatch(_ context.Context, projectID int64, batchLabel string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.ProjectID == projectID && rec.BatchLabel == batchLabel {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) DeleteRecordsByBatch(_ context.Context, projectID int64, batchLabel string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.Record
	var n int64
	for _, rec := range r.records {
		if rec.ProjectID == projectID && rec.BatchLabel == batchLabel {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return n, nil
}

func (r *fakeRepo) ListBatches(_ context.Context, _ int64) ([]model.BatchDetail, error) {
	return nil, nil
}

func (r *fakeRepo) recordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeAI replies with a canned response per sheet name, falling back to
// the default reply.
type fakeAI struct {
	mu       sync.Mutex
	reply    string
	bySheet  map[string]string
	err      error
	requests int
}

func (a *fakeAI) CompleteStream(_ context.Context, req ai.Request, onDelta func(string)) (string, error) {
	a.mu.Lock()
	a.requests++
	reply := a.reply
	for name, r := range a.bySheet {
		if strings.Contains(req.UserPrompt, `"`+name+`"`) {
			reply = r
		}
	}
	err := a.err
	a.mu.Unlock()

	if err != nil {
		return "", err
	}
	if onDelta != nil {
		onDelta(reply)
	}
	return reply, nil
}

// fakeDecoder maps the downloaded content (the file reference itself in
// these tests) to canned sheets.
type fakeDecoder struct {
	sheets map[string][]excel.Sheet
	err    error
}

func (d *fakeDecoder) Decode(r io.Reader) ([]excel.Sheet, error) {
	if d.err != nil {
		return nil, d.err
	}
	key, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return d.sheets[string(key)], nil
}

// fakeSource hands back the reference itself as content, letting the
// decoder key on it.
type fakeSource struct{}

func (fakeSource) Download(_ context.Context, ref string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(ref)), nil
}

// collector records published events in order.
type collector struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collector) Publish(_ context.Context, ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Event
	}
	return out
}

func (c *collector) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Event == name {
			n++
		}
	}
	return n
}

const testTimeout = 5 * time.Second
