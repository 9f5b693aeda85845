package processing

import (
	"context"

	"github.com/kociii/reData/internal/model"
)

type duplicateFinder interface {
	FindDuplicate(ctx context.Context, projectID int64, keys map[string]string) (bool, error)
}

// Oracle answers "is this row already imported". It only consults the
// store when the project enables dedup and the row has at least one
// non-empty dedup key value.
type Oracle struct {
	repo duplicateFinder
}

func NewOracle(repo duplicateFinder) *Oracle {
	return &Oracle{repo: repo}
}

func (o *Oracle) IsDuplicate(ctx context.Context, project *model.Project, fields []model.FieldDefinition, data map[string]string) (bool, error) {
	if !project.DedupEnabled {
		return false, nil
	}

	keys := make(map[string]string)
	for _, f := range fields {
		if !f.IsDedupKey {
			continue
		}
		if v := data[f.Name]; v != "" {
			keys[f.Name] = v
		}
	}
	if len(keys) == 0 {
		return false, nil
	}

	return o.repo.FindDuplicate(ctx, project.ID, keys)
}
