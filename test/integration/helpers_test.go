//go:build integration

package integration

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/devserver"
	"sales-dashboard/internal/transfer"
)

var (
	testReport = []byte("PK\x03\x04 integration spreadsheet")
	testChart  = []byte("\x89PNG\r\n\x1a\n integration chart")
)

// projectRoot returns the absolute path to the repository root, two levels
// above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

func dotEnvPath() string {
	return filepath.Join(projectRoot(), ".env")
}

// requireDestination loads .env and returns the object storage prefix named
// by envVar, skipping the test when it or its credentials are not set.
func requireDestination(t *testing.T, envVar string, credentials ...string) string {
	t.Helper()

	_ = config.LoadDotEnv(dotEnvPath())
	dest := os.Getenv(envVar)
	if dest == "" {
		t.Skipf("required env var %s not set (check .env)", envVar)
	}
	for _, v := range credentials {
		if os.Getenv(v) == "" {
			t.Skipf("required env var %s not set (check .env)", v)
		}
	}
	return dest
}

type testEnv struct {
	Client    *transfer.Client
	Storage   config.StorageConfig
	UploadDir string
}

// setupBackend starts the reporting backend on a real listener with a report
// and a chart already generated.
func setupBackend(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "sales_report.xlsx")
	chartPath := filepath.Join(dir, "forecast.png")
	require.NoError(t, os.WriteFile(reportPath, testReport, 0o600))
	require.NoError(t, os.WriteFile(chartPath, testChart, 0o600))

	uploadDir := filepath.Join(dir, "uploads")
	srv := httptest.NewServer(devserver.New(t.Context(), devserver.Config{
		UploadDir:      uploadDir,
		ReportPath:     reportPath,
		ChartPath:      chartPath,
		MaxUploadBytes: 32 << 20,
	}))
	t.Cleanup(srv.Close)

	env, err := config.LoadClientFromEnv()
	require.NoError(t, err)

	return &testEnv{
		Client:    transfer.NewClient(srv.URL),
		Storage:   env.Storage,
		UploadDir: uploadDir,
	}
}
