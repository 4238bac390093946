// Package storage provides object storage adapters for generated
// recipe media: an S3 implementation and an in-memory one for tests.
package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/infrastructure/config"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// S3Store uploads media to S3 and signs time-limited GET URLs
type S3Store struct {
	client *s3.S3
	bucket string
	logger *zap.Logger
}

// NewS3Store creates the S3 adapter from configuration
func NewS3Store(cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	awsConfig := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.NewStorageError("create S3 session", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Upload stores bytes under key and returns the storage path
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.NewStorageError("upload object", err).WithMetadata("key", key)
	}
	return key, nil
}

// SignURL converts a storage path into a presigned GET URL. It returns
// the empty string, never an error, on signing failure; callers treat
// "" as unavailable.
func (s *S3Store) SignURL(_ context.Context, storagePath string, ttl time.Duration) string {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	})

	url, err := req.Presign(ttl)
	if err != nil {
		s.logger.Warn("failed to presign object URL",
			zap.String("path", storagePath),
			zap.Error(err))
		return ""
	}
	return url
}

var _ outbound.ObjectStore = (*S3Store)(nil)
