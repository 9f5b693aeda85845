// Package progress maintains the durable per-file and per-sheet ledger
// and reconstructs the progress tree clients poll.
package progress

import (
	"context"
	"fmt"

	"github.com/kociii/reData/internal/model"
)

// Store is the persistence the ledger needs. db.Repository satisfies it.
type Store interface {
	FindProgress(ctx context.Context, taskID, fileName string, sheetName *string) (*model.ProgressRow, error)
	InsertProgress(ctx context.Context, row *model.ProgressRow) error
	UpdateProgress(ctx context.Context, row *model.ProgressRow) error
	ListProgress(ctx context.Context, taskID string) ([]model.ProgressRow, error)
	DeleteProgress(ctx context.Context, taskID string) error
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Upsert merges one update into the ledger. Nil fields leave the stored
// value unchanged; a missing row is created with waiting/zero defaults
// before the merge, so repeating the same update is idempotent.
func (l *Ledger) Upsert(ctx context.Context, u model.ProgressUpdate) error {
	row, err := l.store.FindProgress(ctx, u.TaskID, u.FileName, u.SheetName)
	if err != nil {
		return err
	}

	if row == nil {
		row = &model.ProgressRow{
			TaskID:    u.TaskID,
			FileName:  u.FileName,
			FilePhase: model.FilePhaseWaiting,
			SheetName: u.SheetName,
		}
		if u.SheetName != nil {
			phase := model.SheetPhaseWaiting
			row.SheetPhase = &phase
		}
		merge(row, u)
		return l.store.InsertProgress(ctx, row)
	}

	merge(row, u)
	return l.store.UpdateProgress(ctx, row)
}

func merge(row *model.ProgressRow, u model.ProgressUpdate) {
	if u.FilePhase != nil {
		row.FilePhase = *u.FilePhase
	}
	if u.SheetPhase != nil {
		row.SheetPhase = u.SheetPhase
	}
	if u.AIConfidence != nil {
		row.AIConfidence = u.AIConfidence
	}
	if u.MappingCount != nil {
		row.MappingCount = u.MappingCount
	}
	if u.SuccessCount != nil {
		row.SuccessCount = *u.SuccessCount
	}
	if u.ErrorCount != nil {
		row.ErrorCount = *u.ErrorCount
	}
	if u.TotalRows != nil {
		row.TotalRows = *u.TotalRows
	}
	if u.ErrorMessage != nil {
		row.ErrorMessage = u.ErrorMessage
	}
}

// Tree rebuilds the per-task progress view. Files keep their first-seen
// insertion order. When a file has sheet rows, the file counters are
// the sheet sums; interrupted sheets of a done file are corrected to
// done so a finished file never shows a sheet mid-flight.
func (l *Ledger) Tree(ctx context.Context, taskID string) (*model.TaskProgress, error) {
	rows, err := l.store.ListProgress(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading progress rows: %w", err)
	}

	byFile := make(map[string]*model.FileProgress)
	var order []string

	for _, row := range rows {
		fp, ok := byFile[row.FileName]
		if !ok {
			fp = &model.FileProgress{FileName: row.FileName, FilePhase: model.FilePhaseWaiting}
			byFile[row.FileName] = fp
			order = append(order, row.FileName)
		}

		if row.SheetName == nil {
			fp.FilePhase = row.FilePhase
			fp.TotalRows = row.TotalRows
			fp.SuccessCount = row.SuccessCount
			fp.ErrorCount = row.ErrorCount
			continue
		}

		phase := model.SheetPhaseWaiting
		if row.SheetPhase != nil {
			phase = *row.SheetPhase
		}
		fp.Sheets = append(fp.Sheets, model.SheetProgress{
			SheetName:    *row.SheetName,
			SheetPhase:   phase,
			AIConfidence: row.AIConfidence,
			MappingCount: row.MappingCount,
			SuccessCount: row.SuccessCount,
			ErrorCount:   row.ErrorCount,
			TotalRows:    row.TotalRows,
			ErrorMessage: row.ErrorMessage,
		})
	}

	files := make([]model.FileProgress, 0, len(order))
	for _, name := range order {
		fp := byFile[name]

		if len(fp.Sheets) > 0 {
			var total, success, errs int
			for i := range fp.Sheets {
				s := &fp.Sheets[i]
				if fp.FilePhase == model.FilePhaseDone &&
					(s.SheetPhase == model.SheetPhaseAIAnalyzing || s.SheetPhase == model.SheetPhaseImporting) {
					s.SheetPhase = model.SheetPhaseDone
				}
				total += s.TotalRows
				success += s.SuccessCount
				errs += s.ErrorCount
			}
			fp.TotalRows = total
			fp.SuccessCount = success
			fp.ErrorCount = errs
		}

		files = append(files, *fp)
	}

	return &model.TaskProgress{TaskID: taskID, Files: files}, nil
}

// Reset drops every ledger row of a task.
func (l *Ledger) Reset(ctx context.Context, taskID string) error {
	return l.store.DeleteProgress(ctx, taskID)
}
