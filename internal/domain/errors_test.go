package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFromStatus_Kinds(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{400, KindClientRejected},
		{404, KindClientRejected},
		{422, KindClientRejected},
		{500, KindServerFailed},
		{503, KindServerFailed},
		{302, KindServerFailed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.status), func(t *testing.T) {
			err := ErrFromStatus(tt.status, "")
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestExchangeError_Message(t *testing.T) {
	assert.Equal(t, "unsupported file type", ErrFromStatus(400, "unsupported file type").Error())
	assert.Equal(t, "HTTP 500 Internal Server Error", ErrFromStatus(500, "").Error())
	assert.Equal(t, "need 3 files", ErrValidation("need %d files", 3).Error())
}

func TestErrNetwork_UnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	err := ErrNetwork(cause)

	assert.Equal(t, cause.Error(), err.Detail)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindNetwork, KindOf(fmt.Errorf("upload: %w", err)))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestDetailOr(t *testing.T) {
	assert.Equal(t, "too big", DetailOr(ErrFromStatus(413, "too big"), "fallback"))
	assert.Equal(t, "fallback", DetailOr(ErrFromStatus(500, ""), "fallback"))
	assert.Equal(t, "boom", DetailOr(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", DetailOr(nil, "fallback"))
}

func TestUploadFailed_Formatting(t *testing.T) {
	t.Run("server detail", func(t *testing.T) {
		out := UploadFailed(ErrFromStatus(400, "unsupported file type"), "File upload failed")
		assert.False(t, out.Succeeded)
		assert.Equal(t, "Error: unsupported file type", out.Text())
	})

	t.Run("fallback", func(t *testing.T) {
		out := UploadFailed(ErrFromStatus(500, ""), "File upload failed")
		assert.Equal(t, "Error: File upload failed", out.Reason)
	})

	t.Run("network cause verbatim", func(t *testing.T) {
		out := UploadFailed(ErrNetwork(errors.New("connection refused")), "File upload failed")
		assert.Equal(t, "Error: connection refused", out.Reason)
	})
}

func TestUploadRejected(t *testing.T) {
	out := UploadRejected(ErrValidation("Please select one or more files to upload."))
	assert.False(t, out.Succeeded)
	assert.Equal(t, "Please select one or more files to upload.", out.Reason)
	assert.Equal(t, KindValidation, KindOf(out.Err))
}

func TestErrLocalInput(t *testing.T) {
	cause := errors.New("open q1.csv: permission denied")
	err := ErrLocalInput(cause)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, cause.Error(), err.Detail)
	assert.ErrorIs(t, err, cause)
}

func TestUploadSucceeded(t *testing.T) {
	out := UploadSucceeded("3 files uploaded")
	assert.True(t, out.Succeeded)
	assert.Equal(t, "3 files uploaded", out.Text())
	assert.NoError(t, out.Err)
}
