package services

import (
	"context"
	"fmt"
	"time"

	"catalogfacets/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioService turns stored product image keys into downloadable URLs
type MinioService interface {
	ImageURL(ctx context.Context, objectName string) (string, error)
	EnsureBucketExists(ctx context.Context) error
	Ping(ctx context.Context) error
}

type minioClient struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioService(cfg config.MinioConfig) (MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	expiry := cfg.URLLifetime
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &minioClient{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (m *minioClient) ImageURL(ctx context.Context, objectName string) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectName, err)
	}
	return url.String(), nil
}

func (m *minioClient) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Ping checks that the image bucket is reachable without creating it
func (m *minioClient) Ping(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}
