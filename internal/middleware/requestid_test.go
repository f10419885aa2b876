package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveWithRequestID runs one request through RequestID and returns the ID
// the handler saw.
func serveWithRequestID(t *testing.T, headerID string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var capturedID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload/", nil)
	if headerID != "" {
		req.Header.Set("X-Request-ID", headerID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return capturedID, rec
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	id, rec := serveWithRequestID(t, "")

	_, err := uuid.Parse(id)
	require.NoError(t, err, "generated IDs are UUIDs")
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsClientCorrelationID(t *testing.T) {
	// The gateway client stamps every request with a UUID; the backend
	// echoes it so both sides log the same ID.
	clientID := uuid.NewString()

	id, rec := serveWithRequestID(t, clientID)
	assert.Equal(t, clientID, id)
	assert.Equal(t, clientID, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Validation(t *testing.T) {
	tests := []struct {
		name     string
		headerID string
		keep     bool
	}{
		{"alphanumeric with separators", "export-2024_01", true},
		{"max length", strings.Repeat("r", maxRequestIDLen), true},
		{"too long", strings.Repeat("r", maxRequestIDLen+1), false},
		{"newline", "id\nlevel=ERROR msg=forged", false},
		{"carriage return", "id\rforged", false},
		{"space", "sales report", false},
		{"markup", "<b>id</b>", false},
		{"non-ascii", "bericht-ä", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _ := serveWithRequestID(t, tt.headerID)
			require.NotEmpty(t, id)
			if tt.keep {
				assert.Equal(t, tt.headerID, id)
				return
			}
			assert.NotEqual(t, tt.headerID, id)
			assert.True(t, validRequestID(id), "replacement ID is itself valid")
		})
	}
}

func TestRequestIDFromContext_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
