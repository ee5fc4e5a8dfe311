package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gocddb/config"
	"gocddb/logger"
)

// MinioClient wraps one bucket holding a FreeDB dump.
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinioClient creates a client for bucketName.
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinioClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioClient{client: client, bucketName: bucketName}, nil
}

// NewMinioClientFromConfig creates a client from the MINIO_* settings. A
// non-empty bucket overrides the configured one.
func NewMinioClientFromConfig(cfg *config.Config, bucket string) (*MinioClient, error) {
	if bucket == "" {
		bucket = cfg.MinioBucket
	}
	return NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, bucket, cfg.MinioUseSSL)
}

// Bucket returns the bucket name.
func (m *MinioClient) Bucket() string {
	return m.bucketName
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucketName, err)
	}
	logger.Info("created bucket", logger.String("bucket", m.bucketName))
	return nil
}

// Ping checks that the bucket is reachable and exists.
func (m *MinioClient) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucketName)
	}
	return nil
}
