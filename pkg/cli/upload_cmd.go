package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/gateway"
)

func newUploadCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload sales data files to the reporting service",
		Long: "Uploads the given files, in argument order, as one multipart request. " +
			"Files are read when the request is sent.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := make(domain.FileSelection, 0, len(args))
			for _, path := range args {
				sel = append(sel, domain.FileFromPath(path))
			}

			out := gateway.NewUploader(s.client, s.logger).Submit(cmd.Context(), sel)
			return reportUpload(cmd, out)
		},
	}
}

// uploadResult is the JSON shape of an upload outcome.
type uploadResult struct {
	Succeeded bool             `json:"succeeded"`
	Message   string           `json:"message"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
	Status    int              `json:"http_status,omitempty"`
}

func newUploadResult(out domain.UploadOutcome) uploadResult {
	res := uploadResult{Succeeded: out.Succeeded, Message: out.Text()}
	var exErr *domain.ExchangeError
	if errors.As(out.Err, &exErr) {
		res.Kind = exErr.Kind
		res.Status = exErr.Status
	}
	return res
}

// reportUpload prints the outcome and turns a failure into exit status 1.
func reportUpload(cmd *cobra.Command, out domain.UploadOutcome) error {
	if getOutputFormat(cmd) == "json" {
		if err := PrintJSON(os.Stdout, newUploadResult(out)); err != nil {
			return err
		}
	} else {
		var w io.Writer = os.Stdout
		if !out.Succeeded {
			w = os.Stderr
		}
		_, _ = fmt.Fprintln(w, out.Text())
	}
	if !out.Succeeded {
		return &exitError{code: 1}
	}
	return nil
}
