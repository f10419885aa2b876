// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the reporting service address used when none is configured.
const DefaultAPIBaseURL = "http://127.0.0.1:8000"

// StorageConfig holds credentials for the object-storage artifact sinks.
// Every field is optional; a sink reports what it is missing when opened.
type StorageConfig struct {
	// S3 or S3-compatible storage.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string // host[:port] or full URL; empty means AWS
	S3Region   *string

	// Google Cloud Storage service account key file.
	GCSKeyFile string

	// Azure Blob Storage shared-key credentials.
	AzureAccountName string
	AzureAccountKey  string
}

// HasS3Config returns true if the S3 credentials and region are set.
func (s *StorageConfig) HasS3Config() bool {
	return s.S3KeyID != nil && s.S3Secret != nil && s.S3Region != nil
}

// ClientConfig holds the gateway client settings and the artifact storage
// credentials.
type ClientConfig struct {
	APIBaseURL    string        // reporting service base address (default DefaultAPIBaseURL)
	HTTPTimeout   time.Duration // whole-request timeout (default 30s)
	OutboundRPS   float64       // outbound request rate limit; 0 disables it
	OutboundBurst int           // outbound burst (default 1 when OutboundRPS is set)

	Storage StorageConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// Config holds the client settings plus the settings of the development
// reporting backend.
type Config struct {
	ClientConfig

	ListenAddr         string   // HTTP listen address (default ":8000")
	UploadDir          string   // where uploaded files are stored (default "uploads")
	ReportPath         string   // spreadsheet served by GET /export/ (default "sales_report.xlsx")
	ChartPath          string   // PNG served by GET /chart/forecast/{days}; empty means not available
	MaxUploadBytes     int64    // maximum multipart body size (default 32 MiB)
	RateLimitRPS       float64  // sustained requests per second per client (default 100)
	RateLimitBurst     int      // burst capacity (default 200)
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	LogLevel string // log level: debug, info, warn, error (default "info")
	Env      string // environment: "development" (default) or "production"
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to an slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadClientFromEnv loads the gateway client settings and storage credentials
// from environment variables.
func LoadClientFromEnv() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIBaseURL: os.Getenv("SALES_API_URL"),
	}

	if v := os.Getenv("SALES_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SALES_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}
	if v := os.Getenv("SALES_OUTBOUND_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.OutboundRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid SALES_OUTBOUND_RPS %q", v))
		}
	}
	if v := os.Getenv("SALES_OUTBOUND_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OutboundBurst = n
		}
	}

	// Storage credentials are optional; only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.Storage.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.Storage.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Storage.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Storage.S3Region = &v
	}
	cfg.Storage.GCSKeyFile = os.Getenv("GCS_KEY_FILE")
	cfg.Storage.AzureAccountName = os.Getenv("AZURE_STORAGE_ACCOUNT")
	cfg.Storage.AzureAccountKey = os.Getenv("AZURE_STORAGE_KEY")

	// Defaults
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.OutboundRPS > 0 && cfg.OutboundBurst <= 0 {
		cfg.OutboundBurst = 1
	}

	if cfg.HTTPTimeout < 0 {
		return nil, fmt.Errorf("SALES_HTTP_TIMEOUT must not be negative")
	}
	return cfg, nil
}

// LoadFromEnv loads the full configuration from environment variables.
// Storage credentials are optional: only the local file sink needs none.
func LoadFromEnv() (*Config, error) {
	client, err := LoadClientFromEnv()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		ClientConfig: *client,
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		ReportPath:   os.Getenv("REPORT_PATH"),
		ChartPath:    os.Getenv("CHART_PATH"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Env:          os.Getenv("ENV"),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = "sales_report.xlsx"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.ChartPath == "" {
		cfg.Warnings = append(cfg.Warnings, "CHART_PATH not set: GET /chart/forecast/{days} will report the model as unavailable")
	}

	if cfg.MaxUploadBytes < 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must not be negative")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
