// Package sink persists exported artifacts to a local directory or to object
// storage (S3, GCS, Azure Blob Storage).
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/domain"
)

// Compile-time checks: every sink satisfies domain.ArtifactSink.
var (
	_ domain.ArtifactSink = (*FileSink)(nil)
	_ domain.ArtifactSink = (*S3Sink)(nil)
	_ domain.ArtifactSink = (*GCSSink)(nil)
	_ domain.ArtifactSink = (*AzureSink)(nil)
)

// Open returns the sink for destination.
//
// Supported destinations:
//
//	./reports or /abs/dir   local directory
//	file:///abs/dir         local directory
//	s3://bucket/prefix      S3 or S3-compatible storage
//	gs://bucket/prefix      Google Cloud Storage
//	az://container/prefix   Azure Blob Storage
//
// An empty destination means the current directory.
func Open(ctx context.Context, destination string, storage config.StorageConfig) (domain.ArtifactSink, error) {
	if destination == "" {
		return &FileSink{Dir: "."}, nil
	}
	if !strings.Contains(destination, "://") {
		return &FileSink{Dir: destination}, nil
	}

	u, err := url.Parse(destination)
	if err != nil {
		return nil, domain.ErrValidation("invalid destination %q: %v", destination, err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + u.Path
		}
		if dir == "" {
			dir = "."
		}
		return &FileSink{Dir: dir}, nil
	case "s3":
		bucket, prefix, err := parseBucketPath(u, destination)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(storage, bucket, prefix)
	case "gs":
		bucket, prefix, err := parseBucketPath(u, destination)
		if err != nil {
			return nil, err
		}
		return NewGCSSink(ctx, storage.GCSKeyFile, bucket, prefix)
	case "az":
		container, prefix, err := parseBucketPath(u, destination)
		if err != nil {
			return nil, err
		}
		return NewAzureSink(storage.AzureAccountName, storage.AzureAccountKey, container, prefix)
	default:
		return nil, domain.ErrValidation("unsupported destination scheme %q in %q", u.Scheme, destination)
	}
}

// parseBucketPath extracts the bucket (or container) and key prefix from a
// "scheme://bucket/prefix" URI. The prefix may be empty.
func parseBucketPath(u *url.URL, raw string) (bucket, prefix string, err error) {
	bucket = u.Host
	if bucket == "" {
		return "", "", domain.ErrValidation("missing bucket in destination %q", raw)
	}
	prefix = strings.Trim(u.Path, "/")
	return bucket, prefix, nil
}

// baseName reduces a suggested filename to a safe single path element.
func baseName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(filename, "\\", "/")))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", domain.ErrValidation("invalid artifact filename %q", filename)
	}
	return name, nil
}

// objectKey joins a key prefix and a sanitized filename.
func objectKey(prefix, filename string) (string, error) {
	name, err := baseName(filename)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return name, nil
	}
	return path.Join(prefix, name), nil
}

// contentType returns the artifact content type or the binary default.
func contentType(a domain.ExportArtifact) string {
	if a.ContentType != "" {
		return a.ContentType
	}
	return "application/octet-stream"
}

// maxPrealloc bounds how much buffer reads trust a declared artifact size.
const maxPrealloc = 64 << 20

// buffer reads the whole artifact into memory. S3 uploads need a seekable
// body of known length.
func buffer(a domain.ExportArtifact) (*bytes.Reader, error) {
	var buf bytes.Buffer
	if a.Size > 0 {
		buf.Grow(int(min(a.Size, maxPrealloc)))
	}
	if _, err := io.Copy(&buf, a.Body); err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", a.Filename, err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
