// Package gateway implements the upload and export controllers that mediate
// all file exchange between the dashboard and the reporting service.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/transfer"
)

// Wire constants of the upload endpoint.
const (
	UploadPath  = "/upload/"
	UploadField = "files"
)

// User-facing upload messages.
const (
	MsgEmptySelection  = "Please select one or more files to upload."
	MsgUploadFallback  = "File upload failed"
	defaultContentType = "application/octet-stream"
)

// Sender is the slice of the transfer client the controllers depend on.
type Sender interface {
	Send(ctx context.Context, req transfer.Request) *transfer.Response
}

// Uploader turns a FileSelection into one multipart submission and exactly
// one UploadOutcome. It keeps no state between calls.
type Uploader struct {
	client Sender
	logger *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(client Sender, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, logger: logger}
}

type uploadResponse struct {
	Message *string `json:"message"`
}

// Submit uploads every file in sel, in order, under the "files" field. It
// never retries and never mutates sel.
func (u *Uploader) Submit(ctx context.Context, sel domain.FileSelection) domain.UploadOutcome {
	if len(sel) == 0 {
		return domain.UploadRejected(domain.ErrValidation(MsgEmptySelection))
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	writeErr := make(chan error, 1)
	go func() {
		err := writeParts(mw, sel)
		_ = pw.CloseWithError(err)
		writeErr <- err
	}()

	resp := u.client.Send(ctx, transfer.Request{
		Method:      http.MethodPost,
		Path:        UploadPath,
		Body:        pr,
		ContentType: mw.FormDataContentType(),
	})
	defer resp.Close() //nolint:errcheck

	// Unblock the writer if the transport stopped reading early.
	_ = pr.CloseWithError(errUploadAbandoned)
	if err := <-writeErr; err != nil && !errors.Is(err, errUploadAbandoned) && !errors.Is(err, io.ErrClosedPipe) {
		u.logger.Warn("upload aborted while reading selection", "files", len(sel), "error", err)
		return domain.UploadFailed(domain.ErrLocalInput(err), MsgUploadFallback)
	}

	if failure := resp.Failure(); failure != nil {
		u.logger.Warn("upload failed",
			"files", len(sel),
			"kind", failure.Kind,
			"status", failure.Status,
			"error", failure,
		)
		return domain.UploadFailed(failure, MsgUploadFallback)
	}

	var body uploadResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return domain.UploadFailed(err, MsgUploadFallback)
	}
	if body.Message == nil {
		err := domain.ErrSchema(resp.StatusCode, nil, "upload response has no message field")
		return domain.UploadFailed(err, MsgUploadFallback)
	}

	u.logger.Info("upload completed", "files", len(sel), "names", sel.Names())
	return domain.UploadSucceeded(*body.Message)
}

var errUploadAbandoned = errors.New("upload request finished before body was written")

func writeParts(mw *multipart.Writer, sel domain.FileSelection) error {
	for _, f := range sel {
		if err := writePart(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, f domain.SelectedFile) error {
	if f.Open == nil {
		return fmt.Errorf("file %q has no content", f.Name)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer src.Close() //nolint:errcheck

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentTypeFor(f.Name))

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part for %q: %w", f.Name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("write %q: %w", f.Name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return defaultContentType
}
