package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

type LocalSource struct{}

func NewLocalSource() *LocalSource { return &LocalSource{} }

func (s *LocalSource) Download(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("opening local file: %w", err)
	}
	return f, nil
}
