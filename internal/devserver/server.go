// Package devserver provides a local reporting backend that speaks the same
// wire contract as the production service: multipart uploads, spreadsheet
// export and forecast charts. It is extracted from cmd/salesd so that tests
// can spin up an in-process backend via httptest.NewServer.
package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
)

// Config holds the parameters needed to build the backend handler.
type Config struct {
	UploadDir          string
	ReportPath         string
	ChartPath          string
	MaxUploadBytes     int64
	RateLimit          middleware.RateLimitConfig
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// ConfigFrom derives the handler configuration from application config.
func ConfigFrom(cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		UploadDir:      cfg.UploadDir,
		ReportPath:     cfg.ReportPath,
		ChartPath:      cfg.ChartPath,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	}
}

type server struct {
	cfg       Config
	logger    *slog.Logger
	startTime time.Time
}

// New builds the backend's http.Handler. Background work started by the
// middleware stops when ctx is done.
func New(ctx context.Context, cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{cfg: cfg, logger: logger, startTime: time.Now()}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Post("/upload/", s.handleUpload)
	r.Get("/export/", s.handleExport)
	r.Get("/chart/forecast/{days}", s.handleForecastChart)
	r.Get("/chart/forecast_base64", s.handleForecastChartBase64)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the {"detail": ...} error body clients parse.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
