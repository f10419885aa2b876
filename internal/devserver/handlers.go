package devserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sales-dashboard/internal/domain"
)

// Wire names shared with the gateway client.
const (
	uploadField     = "files"
	reportFilename  = "sales_report.xlsx"
	spreadsheetType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// acceptedExtensions mirrors the dashboard's file picker.
var acceptedExtensions = map[string]bool{
	".csv":  true,
	".json": true,
}

// handleUpload stores every part under the "files" field. The upload is all
// or nothing: files stored before a failure are removed again.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	stored, err := s.storeParts(r)
	if err != nil {
		for _, p := range stored {
			_ = os.Remove(p)
		}
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("files uploaded", "count", len(stored), "dir", s.cfg.UploadDir)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%d files uploaded successfully", len(stored)),
	})
}

func (s *server) storeParts(r *http.Request) ([]string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.ErrFromStatus(http.StatusBadRequest, "expected a multipart/form-data body")
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	var stored []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stored, s.bodyError(err)
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_, _ = io.Copy(io.Discard, part)
			continue
		}

		name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(part.FileName(), "\\", "/")))
		if !acceptedExtensions[strings.ToLower(filepath.Ext(name))] {
			return stored, domain.ErrFromStatus(http.StatusBadRequest, "unsupported file type: "+name)
		}

		dest := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"_"+name)
		if err := writePart(dest, part); err != nil {
			_ = os.Remove(dest)
			return stored, s.bodyError(err)
		}
		stored = append(stored, dest)
	}

	if len(stored) == 0 {
		return nil, domain.ErrFromStatus(http.StatusBadRequest, `no files provided under field "files"`)
	}
	return stored, nil
}

func writePart(dest string, src io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // dest is built from a uuid and a base name
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// bodyError turns a failure while reading the request body into an error
// with the right status.
func (s *server) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.ErrFromStatus(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds the %d byte limit", tooLarge.Limit))
	}
	var exErr *domain.ExchangeError
	if errors.As(err, &exErr) {
		return err
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "multipart") {
		return domain.ErrFromStatus(http.StatusBadRequest, "malformed multipart body")
	}
	return err
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.cfg.ReportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeDetail(w, http.StatusNotFound, "Report not generated yet.")
			return
		}
		s.writeError(w, r, fmt.Errorf("open report: %w", err))
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, fmt.Errorf("stat report: %w", err))
		return
	}

	w.Header().Set("Content-Type", spreadsheetType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename))
	http.ServeContent(w, r, reportFilename, info.ModTime(), f)
}

func (s *server) handleForecastChart(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(chi.URLParam(r, "days"))
	if err != nil || days <= 0 {
		writeDetail(w, http.StatusBadRequest, msgBadDays)
		return
	}

	f, ok := s.openChart(w, r)
	if !ok {
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, fmt.Errorf("stat chart: %w", err))
		return
	}

	name := fmt.Sprintf("sales_forecast_%dd.png", days)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

const (
	msgBadDays        = "Days must be a positive integer."
	msgModelNotLoaded = "Model not loaded or data not processed yet."
)

// defaultChartDays is the horizon of the base64 chart when days is omitted.
const defaultChartDays = 90

// openChart opens the configured chart image. A missing chart answers 503;
// ok is false when a response has already been written.
func (s *server) openChart(w http.ResponseWriter, r *http.Request) (*os.File, bool) {
	if s.cfg.ChartPath == "" {
		writeDetail(w, http.StatusServiceUnavailable, msgModelNotLoaded)
		return nil, false
	}
	f, err := os.Open(s.cfg.ChartPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeDetail(w, http.StatusServiceUnavailable, msgModelNotLoaded)
			return nil, false
		}
		s.writeError(w, r, fmt.Errorf("open chart: %w", err))
		return nil, false
	}
	return f, true
}

// chartBase64Response is the JSON body of GET /chart/forecast_base64.
type chartBase64Response struct {
	ImageBase64 string         `json:"image_base64"`
	MediaType   string         `json:"media_type"`
	Metrics     map[string]any `json:"metrics"`
}

// handleForecastChartBase64 returns the forecast chart embedded in JSON. The
// model check comes before days validation.
func (s *server) handleForecastChartBase64(w http.ResponseWriter, r *http.Request) {
	f, ok := s.openChart(w, r)
	if !ok {
		return
	}
	defer f.Close() //nolint:errcheck

	days := defaultChartDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeDetail(w, http.StatusBadRequest, msgBadDays)
			return
		}
		days = n
	}

	data, err := io.ReadAll(f)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read chart: %w", err))
		return
	}
	s.logger.Debug("forecast chart encoded", "days", days, "bytes", len(data))
	writeJSON(w, http.StatusOK, chartBase64Response{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MediaType:   "image/png",
	})
}
