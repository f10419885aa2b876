// Package cli implements salesctl, the command-line front end of the sales
// dashboard gateway.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/domain"
	"sales-dashboard/internal/transfer"
)

var (
	version = "dev"
	commit  = "none"
)

// exitError carries a non-zero exit status for an outcome that has already
// been reported to the user.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the CLI.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var exErr *domain.ExchangeError
			if errors.As(err, &exErr) {
				errObj["kind"] = exErr.Kind
				if exErr.Status > 0 {
					errObj["http_status"] = exErr.Status
				}
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// session holds the settings resolved for one invocation and the objects
// built from them.
type session struct {
	host     string
	timeout  time.Duration
	output   string
	logLevel string
	profile  Profile

	env    *config.ClientConfig
	logger *slog.Logger
	client *transfer.Client
}

// destination returns the flag value, else the profile default, else ".".
func (s *session) destination(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("dest") || flagValue != "" {
		return flagValue
	}
	if s.profile.Destination != "" {
		return s.profile.Destination
	}
	return "."
}

func newRootCmd() *cobra.Command {
	var (
		profileName string
		s           = &session{}
	)

	rootCmd := &cobra.Command{
		Use:           "salesctl",
		Short:         "Sales dashboard data exchange CLI",
		Long:          "Upload sales data files to the reporting service and export generated reports and forecast charts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Config file is optional
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			p, err := cfg.ActiveProfile(profileName)
			if err != nil && profileName != "" {
				return err
			}
			s.profile = p

			env, err := config.LoadClientFromEnv()
			if err != nil {
				return err
			}
			s.env = env

			// Apply precedence: flag > env > profile > default. The service
			// environment (SALES_API_URL, SALES_HTTP_TIMEOUT) is the default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("SALES_HOST"); v != "" {
					s.host = v
				} else if p.Host != "" {
					s.host = p.Host
				} else {
					s.host = env.APIBaseURL
				}
			}
			if !cmd.Flags().Changed("timeout") {
				if v := os.Getenv("SALES_TIMEOUT"); v != "" {
					d, err := time.ParseDuration(v)
					if err != nil {
						return fmt.Errorf("invalid SALES_TIMEOUT %q: %w", v, err)
					}
					s.timeout = d
				} else if p.Timeout != "" {
					d, err := time.ParseDuration(p.Timeout)
					if err != nil {
						return fmt.Errorf("invalid timeout %q in profile: %w", p.Timeout, err)
					}
					s.timeout = d
				} else {
					s.timeout = env.HTTPTimeout
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("SALES_OUTPUT"); v != "" {
					s.output = v
				} else if p.Output != "" {
					s.output = p.Output
				}
				_ = cmd.Root().PersistentFlags().Set("output", s.output)
			}
			if err := validateOutputFormat(s.output); err != nil {
				return err
			}
			host, err := normalizeHost(s.host)
			if err != nil {
				return err
			}
			s.host = host

			s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: config.ParseLevel(s.logLevel),
			}))

			for _, w := range env.Warnings {
				s.logger.Warn(w)
			}

			opts := transfer.Options{
				Timeout:   s.timeout,
				Logger:    s.logger,
				UserAgent: "salesctl/" + version,
			}
			if env.OutboundRPS > 0 {
				opts.Limiter = rate.NewLimiter(rate.Limit(env.OutboundRPS), env.OutboundBurst)
			}
			s.client = transfer.NewClient(s.host, opts)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.host, "host", config.DefaultAPIBaseURL, "Reporting service base URL")
	rootCmd.PersistentFlags().DurationVar(&s.timeout, "timeout", transfer.DefaultTimeout, "Whole-request timeout (0 uses the default)")
	rootCmd.PersistentFlags().StringVarP(&s.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newUploadCmd(s))
	rootCmd.AddCommand(newExportCmd(s))
	rootCmd.AddCommand(newChartCmd(s))
	rootCmd.AddCommand(newRefreshCmd(s))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
