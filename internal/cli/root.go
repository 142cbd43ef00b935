package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to intake.yaml, optional
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the intake CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Intake - advocacy data ingestion pipeline",
		Long:  "Batch ETL for untrusted advocate submission files: repair, validate, project, quarantine.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to intake.yaml (defaults apply if omitted)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewJobCommand(opts))
	cmd.AddCommand(NewQuarantineCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// configureLogging routes slog to stderr so JSON output on stdout stays
// machine-readable.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
