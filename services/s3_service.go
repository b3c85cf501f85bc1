package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the object-storage contract: time-limited pre-authorized
// URLs plus the compensating delete used when a confirmed upload cannot be
// promoted.
type ObjectStore interface {
	SignUpload(ctx context.Context, key string) (string, error)
	SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// S3Service implements ObjectStore against one bucket.
type S3Service struct {
	Client       *s3.Client
	Presigner    *s3.PresignClient
	Bucket       string
	UploadExpiry time.Duration
}

// NewS3Service wires an S3 client and its presigner around the configured
// bucket.
func NewS3Service(client *s3.Client, bucket string, uploadExpiry time.Duration) *S3Service {
	return &S3Service{
		Client:       client,
		Presigner:    s3.NewPresignClient(client),
		Bucket:       bucket,
		UploadExpiry: uploadExpiry,
	}
}

// SignUpload returns a pre-authorized PUT URL for key, valid for the
// configured upload window.
func (ss *S3Service) SignUpload(ctx context.Context, key string) (string, error) {
	req, err := ss.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ss.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ss.UploadExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for '%s': %w", key, err)
	}
	return req.URL, nil
}

// SignDownload returns a pre-authorized GET URL for key.
func (ss *S3Service) SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := ss.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for '%s': %w", key, err)
	}
	return req.URL, nil
}

// DeleteObject removes an object; used to compensate when promoting an
// upload fails after storage already confirmed it.
func (ss *S3Service) DeleteObject(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = ss.Bucket
	}
	_, err := ss.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", key, bucket, err)
	}
	return nil
}
