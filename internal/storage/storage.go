// Package storage fetches input workbooks from local paths or S3.
package storage

import (
	"context"
	"io"
	"strings"
)

// Source resolves a file reference to its content. References starting
// with s3:// go to object storage; everything else is a local path.
type Source interface {
	Download(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Router dispatches by reference scheme. S3 may be nil when object
// storage is not configured; s3:// refs then fail with a clear error.
type Router struct {
	Local Source
	S3    Source
}

func (r *Router) Download(ctx context.Context, ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "s3://") {
		if r.S3 == nil {
			return nil, errS3NotConfigured
		}
		return r.S3.Download(ctx, ref)
	}
	return r.Local.Download(ctx, ref)
}
