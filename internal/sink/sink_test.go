package sink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/domain"
)

func strPtr(s string) *string { return &s }

func s3Storage(endpoint string) config.StorageConfig {
	return config.StorageConfig{
		S3KeyID:    strPtr("AKIDEXAMPLE"),
		S3Secret:   strPtr("wJalrXUtnFEMI"),
		S3Region:   strPtr("eu-central-1"),
		S3Endpoint: strPtr(endpoint),
	}
}

func artifact(name, body string) domain.ExportArtifact {
	return domain.ExportArtifact{
		Filename:    name,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

type failingReader struct{ after string }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after != "" {
		n := copy(p, r.after)
		r.after = r.after[n:]
		return n, nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestFileSink_Persist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s := &FileSink{Dir: dir}

	loc, err := s.Persist(context.Background(), artifact("sales_report.xlsx", "PK\x03\x04"))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(loc))
	assert.Equal(t, "sales_report.xlsx", filepath.Base(loc))
	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSink_OverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	s := &FileSink{Dir: dir}

	_, err := s.Persist(context.Background(), artifact("r.xlsx", "first"))
	require.NoError(t, err)
	loc, err := s.Persist(context.Background(), artifact("r.xlsx", "second"))
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileSink_ReadFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s := &FileSink{Dir: dir}

	a := domain.ExportArtifact{Filename: "r.xlsx", Body: &failingReader{after: "partial"}}
	_, err := s.Persist(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must not remain")
}

func TestFileSink_SanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	s := &FileSink{Dir: dir}

	loc, err := s.Persist(context.Background(), artifact("../../etc/passwd", "x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), loc)

	for _, bad := range []string{"", ".", "..", "/"} {
		_, err := s.Persist(context.Background(), artifact(bad, "x"))
		require.Error(t, err, "filename %q", bad)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestFileSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&FileSink{Dir: t.TempDir()}).Persist(ctx, artifact("r.xlsx", "x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpen_Destinations(t *testing.T) {
	ctx := context.Background()

	t.Run("empty is current directory", func(t *testing.T) {
		s, err := Open(ctx, "", config.StorageConfig{})
		require.NoError(t, err)
		assert.Equal(t, &FileSink{Dir: "."}, s)
	})
	t.Run("plain path", func(t *testing.T) {
		s, err := Open(ctx, "out/reports", config.StorageConfig{})
		require.NoError(t, err)
		assert.Equal(t, &FileSink{Dir: "out/reports"}, s)
	})
	t.Run("file URI", func(t *testing.T) {
		s, err := Open(ctx, "file:///var/reports", config.StorageConfig{})
		require.NoError(t, err)
		assert.Equal(t, &FileSink{Dir: "/var/reports"}, s)
	})
	t.Run("s3", func(t *testing.T) {
		s, err := Open(ctx, "s3://sales/reports/2024", s3Storage("minio:9000"))
		require.NoError(t, err)
		s3s, ok := s.(*S3Sink)
		require.True(t, ok)
		assert.Equal(t, "sales", s3s.bucket)
		assert.Equal(t, "reports/2024", s3s.prefix)
	})
	t.Run("s3 without credentials", func(t *testing.T) {
		_, err := Open(ctx, "s3://sales/reports", config.StorageConfig{})
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := Open(ctx, "s3:///reports", s3Storage("minio:9000"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing bucket")
	})
	t.Run("gs without key file", func(t *testing.T) {
		_, err := Open(ctx, "gs://sales/reports", config.StorageConfig{})
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
	t.Run("az without credentials", func(t *testing.T) {
		_, err := Open(ctx, "az://sales/reports", config.StorageConfig{})
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
	t.Run("unknown scheme", func(t *testing.T) {
		_, err := Open(ctx, "ftp://host/dir", config.StorageConfig{})
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Contains(t, err.Error(), `"ftp"`)
	})
}

func TestAzureSink_Construction(t *testing.T) {
	_, err := NewAzureSink("salesacct", "", "reports", "")
	require.Error(t, err)

	_, err = NewAzureSink("salesacct", "not base64!", "reports", "")
	require.Error(t, err, "shared key must be base64")

	s, err := NewAzureSink("salesacct", "c2VjcmV0LWtleQ==", "reports", "daily")
	require.NoError(t, err)
	assert.Equal(t, "reports", s.container)
	assert.Equal(t, "daily", s.prefix)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, filename, want string
	}{
		{"", "sales_report.xlsx", "sales_report.xlsx"},
		{"reports", "sales_report.xlsx", "reports/sales_report.xlsx"},
		{"reports/2024", "../x.png", "reports/2024/x.png"},
		{"reports", `dir\chart.png`, "reports/chart.png"},
	}
	for _, tt := range tests {
		got, err := objectKey(tt.prefix, tt.filename)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3Sink_PutObject(t *testing.T) {
	var (
		mu          sync.Mutex
		gotMethod   string
		gotPath     string
		gotBody     string
		gotType     string
		requestSeen bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotBody, gotType = r.Method, r.URL.Path, string(data), r.Header.Get("Content-Type")
		requestSeen = true
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	s, err := NewS3Sink(s3Storage(srv.URL), "sales", "reports")
	require.NoError(t, err)

	loc, err := s.Persist(context.Background(), artifact("sales_report.xlsx", "spreadsheet-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "s3://sales/reports/sales_report.xlsx", loc)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, requestSeen)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/sales/reports/sales_report.xlsx", gotPath, "path-style addressing")
	assert.Contains(t, gotBody, "spreadsheet-bytes")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", gotType)
}

func TestS3Sink_ReadFailure(t *testing.T) {
	s, err := NewS3Sink(s3Storage("http://127.0.0.1:1"), "sales", "")
	require.NoError(t, err)

	_, err = s.Persist(context.Background(), domain.ExportArtifact{Filename: "r.xlsx", Body: &failingReader{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read artifact r.xlsx")
}

func TestBuffer_DeclaredSizeIsNotTrusted(t *testing.T) {
	tests := []struct {
		name string
		size int64
	}{
		{"unknown", -1},
		{"exact", 11},
		{"understated", 3},
		{"absurd", 1 << 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := artifact("sales_report.xlsx", "report-body")
			a.Size = tt.size

			r, err := buffer(a)
			require.NoError(t, err)
			assert.Equal(t, int64(len("report-body")), r.Size())

			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "report-body", string(data))
		})
	}
}
