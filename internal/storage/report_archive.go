// Package storage archives finished content check reports in object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"licenseguard/backend/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportArchive keeps a copy of every scored check
type ReportArchive interface {
	Store(ctx context.Context, check *models.ContentCheck) error
}

// NopArchive discards reports. Used when archiving is disabled.
type NopArchive struct{}

func (NopArchive) Store(context.Context, *models.ContentCheck) error { return nil }

// MinioArchive stores reports as JSON objects in a MinIO/S3 bucket
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive connects to MinIO and ensures the bucket exists
func NewMinioArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioArchive{client: client, bucket: bucket}, nil
}

// ReportKey is the object key of a check's report
func ReportKey(check *models.ContentCheck) string {
	return fmt.Sprintf("reports/%s/%s.json", check.UserID, check.ID)
}

func encodeReport(check *models.ContentCheck) ([]byte, error) {
	if check.Pending() {
		return nil, fmt.Errorf("check %s is not scored", check.ID)
	}
	return json.Marshal(check)
}

// Store uploads the report of a scored check
func (a *MinioArchive) Store(ctx context.Context, check *models.ContentCheck) error {
	body, err := encodeReport(check)
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, a.bucket, ReportKey(check), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (a *MinioArchive) Ping(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", a.bucket)
	}
	return nil
}
