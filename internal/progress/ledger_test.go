package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kociii/reData/internal/model"
)

// fakeStore keeps progress rows in a slice, matching the insertion
// ordering the real store provides.
type fakeStore struct {
	rows   []*model.ProgressRow
	nextID int64
}

func key(taskID, fileName string, sheetName *string) string {
	k := taskID + "|" + fileName + "|"
	if sheetName != nil {
		k += *sheetName
	}
	return k
}

func (s *fakeStore) FindProgress(_ context.Context, taskID, fileName string, sheetName *string) (*model.ProgressRow, error) {
	for _, r := range s.rows {
		if key(r.TaskID, r.FileName, r.SheetName) == key(taskID, fileName, sheetName) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) InsertProgress(_ context.Context, row *model.ProgressRow) error {
	s.nextID++
	row.ID = s.nextID
	cp := *row
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *fakeStore) UpdateProgress(_ context.Context, row *model.ProgressRow) error {
	for i, r := range s.rows {
		if r.ID == row.ID {
			cp := *row
			s.rows[i] = &cp
			return nil
		}
	}
	return nil
}

func (s *fakeStore) ListProgress(_ context.Context, taskID string) ([]model.ProgressRow, error) {
	var out []model.ProgressRow
	for _, r := range s.rows {
		if r.TaskID == taskID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteProgress(_ context.Context, taskID string) error {
	var kept []*model.ProgressRow
	for _, r := range s.rows {
		if r.TaskID != taskID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func TestUpsertCreatesWithDefaults(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID:   "t1",
		FileName: "a.xlsx",
	}))

	row, err := store.FindProgress(ctx, "t1", "a.xlsx", nil)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, model.FilePhaseWaiting, row.FilePhase)
	assert.Zero(t, row.TotalRows)
}

func TestUpsertPartialUpdateLeavesRestUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)
	sheet := model.StrPtr("Sheet1")

	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID:     "t1",
		FileName:   "a.xlsx",
		SheetName:  sheet,
		SheetPhase: model.StrPtr(model.SheetPhaseImporting),
		TotalRows:  model.IntPtr(100),
	}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID:       "t1",
		FileName:     "a.xlsx",
		SheetName:    sheet,
		SuccessCount: model.IntPtr(40),
	}))

	row, err := store.FindProgress(ctx, "t1", "a.xlsx", sheet)
	require.NoError(t, err)
	assert.Equal(t, 100, row.TotalRows)
	assert.Equal(t, 40, row.SuccessCount)
	assert.Equal(t, model.SheetPhaseImporting, *row.SheetPhase)
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	u := model.ProgressUpdate{
		TaskID:    "t1",
		FileName:  "a.xlsx",
		FilePhase: model.StrPtr(model.FilePhaseProcessing),
	}
	require.NoError(t, l.Upsert(ctx, u))
	require.NoError(t, l.Upsert(ctx, u))

	rows, err := store.ListProgress(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTreeSheetSumsWin(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	// File row carries stale counters; sheet rows are authoritative.
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx",
		FilePhase:    model.StrPtr(model.FilePhaseProcessing),
		TotalRows:    model.IntPtr(1),
		SuccessCount: model.IntPtr(1),
	}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx", SheetName: model.StrPtr("S1"),
		SheetPhase: model.StrPtr(model.SheetPhaseDone),
		TotalRows:  model.IntPtr(30), SuccessCount: model.IntPtr(25), ErrorCount: model.IntPtr(5),
	}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx", SheetName: model.StrPtr("S2"),
		SheetPhase: model.StrPtr(model.SheetPhaseDone),
		TotalRows:  model.IntPtr(20), SuccessCount: model.IntPtr(20),
	}))

	tree, err := l.Tree(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, tree.Files, 1)

	f := tree.Files[0]
	assert.Equal(t, 50, f.TotalRows)
	assert.Equal(t, 45, f.SuccessCount)
	assert.Equal(t, 5, f.ErrorCount)
	assert.Len(t, f.Sheets, 2)
}

func TestTreeTerminalCorrection(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx",
		FilePhase: model.StrPtr(model.FilePhaseDone),
	}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx", SheetName: model.StrPtr("S1"),
		SheetPhase: model.StrPtr(model.SheetPhaseImporting),
	}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
		TaskID: "t1", FileName: "a.xlsx", SheetName: model.StrPtr("S2"),
		SheetPhase: model.StrPtr(model.SheetPhaseError),
	}))

	tree, err := l.Tree(ctx, "t1")
	require.NoError(t, err)

	sheets := tree.Files[0].Sheets
	assert.Equal(t, model.SheetPhaseDone, sheets[0].SheetPhase)
	// Error sheets stay errored.
	assert.Equal(t, model.SheetPhaseError, sheets[1].SheetPhase)
}

func TestTreeKeepsFileOrder(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	for _, name := range []string{"z.xlsx", "a.xlsx", "m.xlsx"} {
		require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{
			TaskID: "t1", FileName: name,
			FilePhase: model.StrPtr(model.FilePhaseProcessing),
		}))
	}

	tree, err := l.Tree(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, tree.Files, 3)
	assert.Equal(t, "z.xlsx", tree.Files[0].FileName)
	assert.Equal(t, "a.xlsx", tree.Files[1].FileName)
	assert.Equal(t, "m.xlsx", tree.Files[2].FileName)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := NewLedger(store)

	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{TaskID: "t1", FileName: "a.xlsx"}))
	require.NoError(t, l.Upsert(ctx, model.ProgressUpdate{TaskID: "t2", FileName: "b.xlsx"}))
	require.NoError(t, l.Reset(ctx, "t1"))

	rows, err := store.ListProgress(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = store.ListProgress(ctx, "t2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
