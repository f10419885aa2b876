package devserver

import (
	"errors"
	"net/http"

	"sales-dashboard/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var exErr *domain.ExchangeError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &exErr) && exErr.Status > 0:
		return exErr.Status
	case errors.As(err, &exErr) && exErr.Kind == domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a {"detail": ...} body. Internal
// errors are reported with a generic detail.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "Internal Server Error"
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeDetail(w, status, detail)
}
