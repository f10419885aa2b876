// Package domain defines core types, ports, and errors for the sales data exchange gateway.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why an exchange with the reporting service failed.
type ErrorKind string

// Error kinds surfaced by the gateway.
const (
	KindValidation     ErrorKind = "validation"      // local input rejected, no I/O performed
	KindNetwork        ErrorKind = "network"         // no response reachable
	KindClientRejected ErrorKind = "client_rejected" // HTTP 4xx
	KindServerFailed   ErrorKind = "server_failed"   // HTTP 5xx or unexpected status
	KindSchema         ErrorKind = "schema"          // response body did not match its schema
)

// ExchangeError is the single error type returned across the gateway. Detail
// carries the human-readable cause (server-provided detail, the transport
// error text, or a validation message) without any display prefix.
type ExchangeError struct {
	Kind   ErrorKind
	Status int // HTTP status code; 0 when no response was received
	Detail string
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// ErrValidation creates a validation error with a formatted message.
func ErrValidation(format string, args ...interface{}) *ExchangeError {
	return &ExchangeError{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// ErrLocalInput wraps a failure to read the caller's own input, such as a
// selected file that can no longer be opened.
func ErrLocalInput(err error) *ExchangeError {
	return &ExchangeError{Kind: KindValidation, Detail: err.Error(), Err: err}
}

// ErrNetwork wraps a transport failure. The detail is the underlying message verbatim.
func ErrNetwork(err error) *ExchangeError {
	return &ExchangeError{Kind: KindNetwork, Detail: err.Error(), Err: err}
}

// ErrSchema creates a schema-mismatch error for an otherwise successful response.
func ErrSchema(status int, err error, format string, args ...interface{}) *ExchangeError {
	return &ExchangeError{Kind: KindSchema, Status: status, Detail: fmt.Sprintf(format, args...), Err: err}
}

// ErrFromStatus classifies a non-2xx response. detail may be empty when the
// server did not supply one.
func ErrFromStatus(status int, detail string) *ExchangeError {
	kind := KindServerFailed
	if status >= 400 && status < 500 {
		kind = KindClientRejected
	}
	return &ExchangeError{Kind: kind, Status: status, Detail: detail}
}

// KindOf returns the ErrorKind of err, or "" when err is not an ExchangeError.
func KindOf(err error) ErrorKind {
	var xe *ExchangeError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return ""
}

// DetailOr returns the server-provided detail of err, or fallback when err
// carries none. Network and validation errors always carry their own detail.
func DetailOr(err error, fallback string) string {
	var xe *ExchangeError
	if errors.As(err, &xe) && xe.Detail != "" {
		return xe.Detail
	}
	if err != nil && !errors.As(err, &xe) {
		return err.Error()
	}
	return fallback
}
