package processing

import (
	"context"
	"fmt"
	"time"
)

type batchCounter interface {
	CountBatchesWithPrefix(ctx context.Context, projectID int64, prefix string) (int, error)
}

// nextBatchLabel produces "BATCH_YYYYMMDD_NNN" where NNN is one past
// the number of batches the project already has today.
func nextBatchLabel(ctx context.Context, repo batchCounter, projectID int64, now time.Time) (string, error) {
	prefix := "BATCH_" + now.Format("20060102")
	n, err := repo.CountBatchesWithPrefix(ctx, projectID, prefix)
	if err != nil {
		return "", fmt.Errorf("counting existing batches: %w", err)
	}
	return fmt.Sprintf("%s_%03d", prefix, n+1), nil
}
