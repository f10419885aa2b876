package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"sales-dashboard/internal/domain"
)

// Status is the uniform classification of a transfer outcome.
type Status int

// Transfer classifications.
const (
	StatusOK Status = iota
	StatusClientError
	StatusServerError
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusClientError:
		return "client-error"
	case StatusServerError:
		return "server-error"
	case StatusNetworkError:
		return "network-error"
	default:
		return "unknown"
	}
}

// Classify maps an HTTP status code to a transfer Status. Anything outside
// 2xx and 4xx is treated as a server failure.
func Classify(code int) Status {
	switch {
	case code >= 200 && code < 300:
		return StatusOK
	case code >= 400 && code < 500:
		return StatusClientError
	default:
		return StatusServerError
	}
}

// maxErrorBody caps how much of an error response is read to find its detail.
const maxErrorBody = 64 << 10

// Response is the classified result of Send. Its body is materialized only
// when the caller asks for it, in the representation the caller chooses:
// DecodeJSON for structured messages, Stream or Bytes for binary payloads.
type Response struct {
	Status     Status
	StatusCode int
	Header     http.Header

	body      io.ReadCloser
	netErr    *domain.ExchangeError
	closeOnce sync.Once
	closeErr  error
}

// NewResponse wraps a received HTTP response. It is exported so alternative
// transports and test doubles can produce responses.
func NewResponse(code int, header http.Header, body io.ReadCloser) *Response {
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = http.NoBody
	}
	return &Response{
		Status:     Classify(code),
		StatusCode: code,
		Header:     header,
		body:       body,
	}
}

// NetworkFailure returns a response for a request that never got an answer.
func NetworkFailure(err error) *Response {
	return networkFailure(err)
}

func networkFailure(err error) *Response {
	return &Response{
		Status: StatusNetworkError,
		Header: http.Header{},
		body:   http.NoBody,
		netErr: domain.ErrNetwork(err),
	}
}

// OK reports whether the response was classified as a success.
func (r *Response) OK() bool { return r.Status == StatusOK }

// ContentType returns the response media type header, if any.
func (r *Response) ContentType() string { return r.Header.Get("Content-Type") }

// ContentLength returns the declared body length, or -1 when unknown.
func (r *Response) ContentLength() int64 {
	if v := r.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return -1
}

// DecodeJSON reads the whole body into v and closes it. A body that is not
// valid JSON for v yields a schema error.
func (r *Response) DecodeJSON(v any) error {
	defer r.Close() //nolint:errcheck
	if err := json.NewDecoder(r.body).Decode(v); err != nil {
		return domain.ErrSchema(r.StatusCode, err, "decode response body: %v", err)
	}
	return nil
}

// Stream hands out the raw body. The caller must still Close the response.
func (r *Response) Stream() io.Reader { return r.body }

// Bytes reads the whole body and closes it.
func (r *Response) Bytes() ([]byte, error) {
	defer r.Close() //nolint:errcheck
	data, err := io.ReadAll(r.body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// Close releases the body. It is safe to call more than once.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}

// Failure returns the typed error for a non-ok response, or nil on success.
// For 4xx/5xx it reads the body looking for the {"detail": "..."} error shape
// and closes it; a missing or unreadable detail leaves Detail empty.
func (r *Response) Failure() *domain.ExchangeError {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNetworkError:
		return r.netErr
	}

	detail, parseErr := r.errorDetail()
	xe := domain.ErrFromStatus(r.StatusCode, detail)
	xe.Err = parseErr
	return xe
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (r *Response) errorDetail() (string, error) {
	defer r.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(r.body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("read error body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", domain.ErrSchema(r.StatusCode, err, "error body is not JSON")
	}
	if len(body.Detail) == 0 || bytes.Equal(body.Detail, []byte("null")) {
		return "", nil
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		// Non-string detail (e.g. a list of field errors) is shown as compact JSON.
		var buf bytes.Buffer
		if compactErr := json.Compact(&buf, body.Detail); compactErr != nil {
			return "", errors.Join(err, compactErr)
		}
		return buf.String(), nil
	}
	return detail, nil
}
