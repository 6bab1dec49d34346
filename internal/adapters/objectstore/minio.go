// Package objectstore implements core.ObjectStorage on S3-compatible storage via minio-go.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/coachmart/preview-worker/internal/core"
)

// Config holds connection settings for MinioStore.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Logger    *slog.Logger
}

// MinioStore reads originals and writes preview artifacts.
type MinioStore struct {
	client *minio.Client
	logger *slog.Logger
}

var _ core.ObjectStorage = (*MinioStore)(nil)

// NewMinioStore creates a store backed by a minio client.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("storage endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MinioStore{client: client, logger: logger.With("component", "object_store")}, nil
}

// Download writes bucket/key to localPath.
func (s *MinioStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Upload puts the object, overwriting whatever is stored under the key.
func (s *MinioStore) Upload(ctx context.Context, obj core.UploadObject) error {
	if err := validateKey(obj.Key); err != nil {
		return err
	}
	if obj.Body == nil {
		return errors.New("upload body is required")
	}
	info, err := s.client.PutObject(ctx, obj.Bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", obj.Bucket, obj.Key, err)
	}
	s.logger.DebugContext(ctx, "uploaded object",
		"bucket", obj.Bucket,
		"key", obj.Key,
		"size", info.Size,
	)
	return nil
}

// EnsureBuckets creates any missing bucket. Used at startup.
func (s *MinioStore) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, b := range buckets {
		exists, err := s.client.BucketExists(ctx, b)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", b, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", b, err)
		}
		s.logger.InfoContext(ctx, "created bucket", "bucket", b)
	}
	return nil
}

func validateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return errors.New("object key is required")
	case strings.Contains(key, ".."):
		return fmt.Errorf("object key %q must not contain '..'", key)
	}
	return nil
}
