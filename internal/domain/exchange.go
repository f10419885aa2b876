package domain

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// SelectedFile is one named blob chosen for upload. Open is called once per
// submission and the returned reader is closed by the caller.
type SelectedFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSelection is the ordered set of files submitted in one upload.
type FileSelection []SelectedFile

// FileFromBytes builds a SelectedFile over an in-memory payload.
func FileFromBytes(name string, data []byte) SelectedFile {
	return SelectedFile{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromPath builds a SelectedFile that streams from disk. The file is not
// opened until the selection is submitted.
func FileFromPath(path string) SelectedFile {
	return SelectedFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path) //nolint:gosec // path comes from the user's own selection
		},
	}
}

// Names returns the file names in selection order.
func (s FileSelection) Names() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		out = append(out, f.Name)
	}
	return out
}

// UploadOutcome is the terminal result of one upload attempt: either a
// success carrying the server's message, or a failure carrying a display
// reason and the typed cause.
type UploadOutcome struct {
	Succeeded bool
	Message   string // set on success, verbatim from the server
	Reason    string // set on failure, ready for display
	Err       error  // *ExchangeError on failure
}

// UploadSucceeded returns a success outcome.
func UploadSucceeded(message string) UploadOutcome {
	return UploadOutcome{Succeeded: true, Message: message}
}

// UploadFailed returns a failure outcome whose display reason is "Error: "
// followed by the error's detail, or fallback when the server gave none.
func UploadFailed(err error, fallback string) UploadOutcome {
	return UploadOutcome{Reason: "Error: " + DetailOr(err, fallback), Err: err}
}

// UploadRejected returns a failure outcome for input rejected before any
// I/O. The validation message is shown as is.
func UploadRejected(err *ExchangeError) UploadOutcome {
	return UploadOutcome{Reason: err.Detail, Err: err}
}

// Text returns the message to display for the outcome.
func (o UploadOutcome) Text() string {
	if o.Succeeded {
		return o.Message
	}
	return o.Reason
}

// ExportArtifact is a generated report handed to an ArtifactSink. Body is
// only valid for the duration of the Persist call.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}
