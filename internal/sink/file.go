package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sales-dashboard/internal/domain"
)

// FileSink writes artifacts into a local directory. A partially written file
// never appears under the final name.
type FileSink struct {
	Dir string
}

// Persist writes the artifact to Dir/<filename> and returns the absolute path.
func (s *FileSink) Persist(ctx context.Context, a domain.ExportArtifact) (string, error) {
	name, err := baseName(a.Filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, a.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("rename to %s: %w", dest, err)
	}
	committed = true

	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return dest, nil
}
