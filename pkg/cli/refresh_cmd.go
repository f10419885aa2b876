package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/gateway"
	"sales-dashboard/internal/sink"
)

// refreshResult is the JSON shape of a refresh run.
type refreshResult struct {
	Upload uploadResult `json:"upload"`
	Export exportResult `json:"export"`
}

type exportResult struct {
	Succeeded bool   `json:"succeeded"`
	Filename  string `json:"filename"`
	Location  string `json:"location,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newRefreshCmd(s *session) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "refresh FILE...",
		Short: "Upload files and export the report concurrently",
		Long: "Runs one upload and one report export at the same time. The two " +
			"actions are independent: a failure in one does not cancel the other.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sink.Open(cmd.Context(), s.destination(cmd, dest), s.env.Storage)
			if err != nil {
				return err
			}
			defer closeSink(target)

			sel := make(domain.FileSelection, 0, len(args))
			for _, path := range args {
				sel = append(sel, domain.FileFromPath(path))
			}
			uploader := gateway.NewUploader(s.client, s.logger)
			exporter := gateway.NewReportExporter(s.client, target, s.logger)

			res := runRefresh(cmd.Context(), uploader, exporter, sel)

			if getOutputFormat(cmd) == "json" {
				if err := PrintJSON(os.Stdout, res); err != nil {
					return err
				}
			} else {
				rows := [][]string{
					{"upload", statusWord(res.Upload.Succeeded), res.Upload.Message},
					{"export", statusWord(res.Export.Succeeded), exportDetail(res.Export)},
				}
				PrintTable(os.Stdout, []string{"action", "result", "detail"}, rows)
			}
			if !res.Upload.Succeeded || !res.Export.Succeeded {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory or object storage prefix (default: profile destination, else .)")

	return cmd
}

// runRefresh runs the upload and the export concurrently. Neither goroutine
// returns an error, so one failing never cancels the other.
func runRefresh(ctx context.Context, uploader *gateway.Uploader, exporter *gateway.Exporter, sel domain.FileSelection) refreshResult {
	var res refreshResult
	res.Export.Filename = exporter.Filename()

	var g errgroup.Group
	g.Go(func() error {
		res.Upload = newUploadResult(uploader.Submit(ctx, sel))
		return nil
	})
	g.Go(func() error {
		location, err := exporter.Export(ctx)
		if err != nil {
			res.Export.Error = err.Error()
			return nil
		}
		res.Export.Succeeded = true
		res.Export.Location = location
		return nil
	})
	_ = g.Wait()
	return res
}

func statusWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func exportDetail(r exportResult) string {
	if r.Succeeded {
		return fmt.Sprintf("saved %s to %s", r.Filename, r.Location)
	}
	return r.Error
}
