package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/gateway"
	"sales-dashboard/internal/sink"
)

// defaultForecastDays is the chart horizon used when --days is not given.
const defaultForecastDays = 90

func newExportCmd(s *session) *cobra.Command {
	var (
		dest  string
		every string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the sales report spreadsheet",
		Long: "Requests a freshly generated sales report and saves it as sales_report.xlsx " +
			"under --dest, a local directory or an s3://, gs:// or az:// prefix. " +
			"With --every the export repeats on a cron schedule until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if every != "" {
				if _, err := cron.ParseStandard(every); err != nil {
					return fmt.Errorf("invalid --every schedule %q: %w", every, err)
				}
			}
			target, err := sink.Open(cmd.Context(), s.destination(cmd, dest), s.env.Storage)
			if err != nil {
				return err
			}
			defer closeSink(target)
			exporter := gateway.NewReportExporter(s.client, target, s.logger)

			if every != "" {
				return runScheduled(cmd.Context(), every, s.logger, func(ctx context.Context) {
					location, err := exporter.Export(ctx)
					if err != nil {
						s.logger.Error("scheduled export failed", "error", err)
						return
					}
					_ = printSaved(cmd, exporter.Filename(), location)
				})
			}

			location, err := exporter.Export(cmd.Context())
			if err != nil {
				return err
			}
			return printSaved(cmd, exporter.Filename(), location)
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory or object storage prefix (default: profile destination, else .)")
	cmd.Flags().StringVar(&every, "every", "", `Repeat on a cron schedule, e.g. "0 6 * * *" or "@every 1h"`)

	return cmd
}

func newChartCmd(s *session) *cobra.Command {
	var (
		dest   string
		days   int
		inJSON bool
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Download the sales forecast chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := sink.Open(cmd.Context(), s.destination(cmd, dest), s.env.Storage)
			if err != nil {
				return err
			}
			defer closeSink(target)
			newChartExporter := gateway.NewForecastChartExporter
			if inJSON {
				newChartExporter = gateway.NewForecastChartBase64Exporter
			}
			exporter, err := newChartExporter(s.client, target, days, s.logger)
			if err != nil {
				return err
			}
			location, err := exporter.Export(cmd.Context())
			if err != nil {
				return err
			}
			return printSaved(cmd, exporter.Filename(), location)
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory or object storage prefix (default: profile destination, else .)")
	cmd.Flags().IntVar(&days, "days", defaultForecastDays, "Forecast horizon in days")
	cmd.Flags().BoolVar(&inJSON, "base64", false, "Fetch the chart through the base64 JSON endpoint")

	return cmd
}

// closeSink releases sinks that hold a client connection.
func closeSink(target domain.ArtifactSink) {
	if c, ok := target.(io.Closer); ok {
		_ = c.Close()
	}
}

// savedResult is the JSON shape of a persisted artifact.
type savedResult struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

func printSaved(cmd *cobra.Command, filename, location string) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, savedResult{Filename: filename, Location: location})
	}
	_, err := fmt.Fprintf(os.Stdout, "Saved %s to %s\n", filename, location)
	return err
}

// runScheduled runs job on the cron schedule spec until ctx is done. Runs
// never overlap and a failed run does not affect the next one.
func runScheduled(ctx context.Context, spec string, logger *slog.Logger, job func(context.Context)) error {
	clog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	logger.Info("export scheduled", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
