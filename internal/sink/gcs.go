package sink

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"sales-dashboard/internal/domain"
)

// GCSSink uploads artifacts to a Google Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink creates a sink writing under gs://bucket/prefix, authenticated
// with a service account key file.
func NewGCSSink(ctx context.Context, keyFile, bucket, prefix string) (*GCSSink, error) {
	if keyFile == "" {
		return nil, domain.ErrValidation("GCS_KEY_FILE is required for gs:// destinations")
	}
	if bucket == "" {
		return nil, domain.ErrValidation("GCS bucket is required")
	}

	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, prefix: prefix}, nil
}

// Persist streams the artifact into the bucket and returns its gs:// URI.
func (s *GCSSink) Persist(ctx context.Context, a domain.ExportArtifact) (string, error) {
	key, err := objectKey(s.prefix, a.Filename)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType(a)
	if _, err := io.Copy(w, a.Body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.bucket, key, err)
	}
	// The object is committed on Close.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("commit gs://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Close releases the underlying client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
