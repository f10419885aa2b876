package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/transfer"
)

// Report export endpoint and the filename suggested for its artifact.
const (
	ReportPath     = "/export/"
	ReportFilename = "sales_report.xlsx"
)

// Forecast chart endpoints: the raw PNG and the same image embedded in JSON.
const (
	forecastChartPath       = "/chart/forecast/%d"
	forecastChartBase64Path = "/chart/forecast_base64?days=%d"
)

// Exporter fetches a generated binary artifact and hands it to a sink. It
// performs no caching and no retries: every call re-fetches.
type Exporter struct {
	client   Sender
	sink     domain.ArtifactSink
	path     string
	filename string
	accept   string
	logger   *slog.Logger

	// embedded artifacts arrive base64 encoded inside a JSON body.
	embedded bool
}

// NewReportExporter creates an Exporter for the sales report spreadsheet.
func NewReportExporter(client Sender, sink domain.ArtifactSink, logger *slog.Logger) *Exporter {
	return newExporter(client, sink, ReportPath, ReportFilename, "*/*", logger)
}

// NewForecastChartBase64Exporter creates an Exporter for the forecast chart
// served as base64 JSON. The decoded PNG is persisted under the same filename
// as NewForecastChartExporter uses.
func NewForecastChartBase64Exporter(client Sender, sink domain.ArtifactSink, days int, logger *slog.Logger) (*Exporter, error) {
	if days <= 0 {
		return nil, domain.ErrValidation("days must be a positive integer, got %d", days)
	}
	e := newExporter(client, sink,
		fmt.Sprintf(forecastChartBase64Path, days),
		fmt.Sprintf("sales_forecast_%dd.png", days),
		"application/json",
		logger,
	)
	e.embedded = true
	return e, nil
}

// NewForecastChartExporter creates an Exporter for the sales forecast chart
// covering the next days days.
func NewForecastChartExporter(client Sender, sink domain.ArtifactSink, days int, logger *slog.Logger) (*Exporter, error) {
	if days <= 0 {
		return nil, domain.ErrValidation("days must be a positive integer, got %d", days)
	}
	return newExporter(client, sink,
		fmt.Sprintf(forecastChartPath, days),
		fmt.Sprintf("sales_forecast_%dd.png", days),
		"image/png, application/json",
		logger,
	), nil
}

func newExporter(client Sender, sink domain.ArtifactSink, path, filename, accept string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		client:   client,
		sink:     sink,
		path:     path,
		filename: filename,
		accept:   accept,
		logger:   logger,
	}
}

// Filename returns the suggested filename of the exported artifact.
func (e *Exporter) Filename() string { return e.filename }

// Export requests the artifact and persists it through the sink exactly once
// on success. On any failure nothing is persisted and a *domain.ExchangeError
// (or the sink's error) is returned. The response body is released before
// Export returns on every path.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	resp := e.client.Send(ctx, transfer.Request{
		Method: http.MethodGet,
		Path:   e.path,
		Accept: e.accept,
	})
	defer resp.Close() //nolint:errcheck

	if failure := resp.Failure(); failure != nil {
		e.logger.Error("export failed",
			"path", e.path,
			"kind", failure.Kind,
			"status", failure.Status,
			"error", failure,
		)
		return "", failure
	}

	artifact := domain.ExportArtifact{
		Filename:    e.filename,
		ContentType: resp.ContentType(),
		Size:        resp.ContentLength(),
		Body:        resp.Stream(),
	}
	if e.embedded {
		decoded, err := decodeEmbedded(resp, e.filename)
		if err != nil {
			e.logger.Error("export failed", "path", e.path, "kind", domain.KindOf(err), "error", err)
			return "", err
		}
		artifact = decoded
	}
	location, err := e.sink.Persist(ctx, artifact)
	if err != nil {
		e.logger.Error("persist export artifact", "filename", e.filename, "error", err)
		return "", fmt.Errorf("persist %s: %w", e.filename, err)
	}

	e.logger.Info("export saved", "filename", e.filename, "location", location)
	return location, nil
}

type embeddedArtifact struct {
	ImageBase64 *string `json:"image_base64"`
	MediaType   string  `json:"media_type"`
}

// decodeEmbedded unwraps a base64 JSON artifact body.
func decodeEmbedded(resp *transfer.Response, filename string) (domain.ExportArtifact, error) {
	var body embeddedArtifact
	if err := resp.DecodeJSON(&body); err != nil {
		return domain.ExportArtifact{}, err
	}
	if body.ImageBase64 == nil {
		return domain.ExportArtifact{}, domain.ErrSchema(resp.StatusCode, nil, "chart response has no image_base64 field")
	}
	data, err := base64.StdEncoding.DecodeString(*body.ImageBase64)
	if err != nil {
		return domain.ExportArtifact{}, domain.ErrSchema(resp.StatusCode, err, "chart image is not valid base64")
	}
	mediaType := body.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return domain.ExportArtifact{
		Filename:    filename,
		ContentType: mediaType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}
