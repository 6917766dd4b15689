// Package s3 implements storage.BlobStore on Amazon S3 or any S3-compatible
// object store (MinIO, localstack).
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/storage"
)

// Store is an S3-backed storage.BlobStore.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	logger  zerolog.Logger
}

// New creates a Store from configuration. Static credentials are used when
// configured; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg config.S3StorageConfig, logger zerolog.Logger) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 blob store configured")

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		logger:  logger.With().Str("component", "s3").Logger(),
	}, nil
}

// PresignUpload issues a presigned POST policy for key.
// The policy pins the key, limits the body size and requires a Content-Type
// starting with policy.ContentTypePrefix.
func (s *Store) PresignUpload(ctx context.Context, key string, policy storage.UploadPolicy) (*storage.PresignedUpload, error) {
	expiresAt := time.Now().Add(policy.Expiry)

	req, err := s.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = policy.Expiry
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 0, policy.MaxSize},
			[]interface{}{"starts-with", "$Content-Type", policy.ContentTypePrefix},
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return &storage.PresignedUpload{
		URL:       req.URL,
		Fields:    req.Values,
		ExpiresAt: expiresAt,
	}, nil
}

// Delete removes the object at key. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Msg("blob deleted")
	return nil
}

// Ensure Store implements storage.BlobStore.
var _ storage.BlobStore = (*Store)(nil)
