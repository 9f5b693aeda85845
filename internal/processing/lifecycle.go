package processing

import (
	"context"
	"fmt"

	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/pkg/errors"
)

// Pause freezes a running task between rows. The durable status changes
// immediately; the loop parks on its next poll.
func (o *Orchestrator) Pause(ctx context.Context, taskID string) error {
	task, err := o.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != model.TaskStatusProcessing {
		return fmt.Errorf("%w: task %s is %s, only a processing task can be paused", errors.ErrInvalidState, taskID, task.Status)
	}

	if ctl, ok := o.registry.Lookup(taskID); ok {
		ctl.Pause()
	}
	return o.repo.UpdateTaskStatus(ctx, taskID, model.TaskStatusPaused)
}

func (o *Orchestrator) Resume(ctx context.Context, taskID string) error {
	task, err := o.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != model.TaskStatusPaused {
		return fmt.Errorf("%w: task %s is %s, only a paused task can be resumed", errors.ErrInvalidState, taskID, task.Status)
	}

	if ctl, ok := o.registry.Lookup(taskID); ok {
		ctl.Resume()
	}
	return o.repo.UpdateTaskStatus(ctx, taskID, model.TaskStatusProcessing)
}

// Cancel stops a running or paused task. The loop observes the flag and
// finishes with the cancelled status itself; when no loop is live (for
// example after a restart) the status is corrected here.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string) error {
	task, err := o.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is already %s", errors.ErrInvalidState, taskID, task.Status)
	}

	if ctl, ok := o.registry.Lookup(taskID); ok {
		ctl.Cancel()
		return nil
	}
	return o.repo.UpdateTaskStatus(ctx, taskID, model.TaskStatusCancelled)
}

// Reset clears the ledger of a finished task and rewinds it to pending.
// With deleteRecords, the records of its batch are removed too.
func (o *Orchestrator) Reset(ctx context.Context, taskID string, deleteRecords bool) error {
	task, err := o.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, live := o.registry.Lookup(taskID); live {
		return fmt.Errorf("%w: task %s is still running, cancel it before resetting", errors.ErrInvalidState, taskID)
	}

	if deleteRecords && task.BatchLabel != "" {
		if _, err := o.repo.DeleteRecordsByBatch(ctx, task.ProjectID, task.BatchLabel); err != nil {
			return err
		}
	}
	if err := o.ledger.Reset(ctx, taskID); err != nil {
		return err
	}

	task.ProcessedFiles = 0
	task.TotalRows = 0
	task.ProcessedRows = 0
	task.SuccessCount = 0
	task.ErrorCount = 0
	if err := o.repo.UpdateTaskProgress(ctx, task); err != nil {
		return err
	}
	return o.repo.UpdateTaskStatus(ctx, taskID, model.TaskStatusPending)
}

// Rollback deletes every record of a batch. Running it again reports
// zero deletions rather than failing.
func (o *Orchestrator) Rollback(ctx context.Context, projectID int64, batchLabel string) (*model.RollbackResult, error) {
	n, err := o.repo.DeleteRecordsByBatch(ctx, projectID, batchLabel)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("deleted %d records from batch %s", n, batchLabel)
	if n == 0 {
		msg = fmt.Sprintf("batch %s has no records to delete", batchLabel)
	}
	return &model.RollbackResult{Success: true, DeletedCount: n, Message: msg}, nil
}

// Progress returns the reconstructed per-file progress tree.
func (o *Orchestrator) Progress(ctx context.Context, taskID string) (*model.TaskProgress, error) {
	if _, err := o.repo.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return o.ledger.Tree(ctx, taskID)
}
