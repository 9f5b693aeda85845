package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

var errS3NotConfigured = errors.New("s3 storage is not configured")

type S3Source struct {
	client *s3.S3
	bucket string
}

type S3Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return &S3Source{client: s3.New(sess), bucket: cfg.Bucket}, nil
}

// Download accepts "s3://bucket/key" or a bare key against the
// configured default bucket.
func (s *S3Source) Download(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key := s.resolve(ref)
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3Source) resolve(ref string) (bucket, key string) {
	trimmed := strings.TrimPrefix(ref, "s3://")
	if trimmed == ref {
		return s.bucket, ref
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return s.bucket, trimmed
}
