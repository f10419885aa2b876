package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/domain"
)

// S3Sink uploads artifacts to an S3 or S3-compatible bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing under s3://bucket/prefix using static
// credentials. A configured endpoint selects path-style addressing, which
// S3-compatible stores (MinIO, Hetzner) require.
func NewS3Sink(storage config.StorageConfig, bucket, prefix string) (*S3Sink, error) {
	if !storage.HasS3Config() {
		return nil, domain.ErrValidation("S3 config is incomplete: S3_KEY_ID, S3_SECRET and S3_REGION are required")
	}
	if bucket == "" {
		return nil, domain.ErrValidation("S3 bucket is required")
	}

	opts := s3.Options{
		Region: *storage.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			*storage.S3KeyID, *storage.S3Secret, "",
		),
	}
	if storage.S3Endpoint != nil && *storage.S3Endpoint != "" {
		endpoint := *storage.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}

	return &S3Sink{
		client: s3.New(opts),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Persist uploads the artifact and returns its s3:// URI.
func (s *S3Sink) Persist(ctx context.Context, a domain.ExportArtifact) (string, error) {
	key, err := objectKey(s.prefix, a.Filename)
	if err != nil {
		return "", err
	}
	body, err := buffer(a)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(body.Size()),
		ContentType:   aws.String(contentType(a)),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
