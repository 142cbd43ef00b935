package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/ingest"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Storage     string
	Database    string
	BatchSize   int
	Concurrency int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep the storage directory and ingest every candidate file",
		Long: `Sweep the storage directory and ingest every candidate file.

Each .json file is parsed (with structural repair if needed), validated,
and projected into the database. Files that fail are moved to the
quarantine area and recorded for later correction; one bad file never
stops the sweep.

Example:
  intake run --storage ./data/incoming --db ./intake.db
  intake run --config intake.yaml --batch-size 50 --concurrency 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "directory of candidate files (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "files per sequential chunk (0 = config default)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max files in flight per chunk (0 = config default)")

	return cmd
}

func runBatch(opts *RunOptions, cmd *cobra.Command) error {
	env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
	if err != nil {
		return err
	}
	defer env.Close()

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = env.cfg.Batch.Size
	}
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = env.cfg.Batch.Concurrency
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("starting batch sweep",
		"storage", env.cfg.Storage.Path,
		"db", env.cfg.Database.Path,
		"batch_size", batchSize,
		"concurrency", concurrency)

	summary, err := env.processor.RunBatch(ctx, batchSize, concurrency)
	if err != nil {
		return WrapExitError(ExitCommandError, "batch sweep failed", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), summary)
	}
	return outputSummaryText(cmd, summary)
}

func outputSummaryText(cmd *cobra.Command, s ingest.Summary) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Processed %d file(s) in %s\n", s.Total, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "  Failed:     %d\n", s.Failed)

	if len(s.FailedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed files (quarantined):")
		for _, f := range s.FailedFiles {
			fmt.Fprintf(w, "  %s: %s\n", f.FileName, f.Error)
		}
	}
	return nil
}
