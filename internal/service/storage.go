package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
)

// ObjectStorage uploads generated artifacts and removes unwanted ones.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, location string) error
}

// MinioStorage stores artifacts in an S3-compatible bucket and serves them
// from a public base URL.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewMinioStorage(cfg *config.StorageConfig, logger *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger,
	}, nil
}

// Upload stores the bytes under a fresh object name and returns the public URL.
func (s *MinioStorage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	objectName := uuid.New().String() + extensionFor(contentType)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicURL, objectName), nil
}

// Remove deletes the object behind a previously returned location. Removing
// an object that no longer exists is treated as success.
func (s *MinioStorage) Remove(ctx context.Context, location string) error {
	objectName := location
	if idx := strings.LastIndex(location, "/"); idx >= 0 {
		objectName = location[idx+1:]
	}
	if objectName == "" {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}

	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}
