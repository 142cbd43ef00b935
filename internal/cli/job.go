package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/worker"
)

// JobOptions holds flags for the job command.
type JobOptions struct {
	*RootOptions
	Storage  string
	Database string
	Input    string
	JobID    string
	Source   string
}

// NewJobCommand creates the job command.
func NewJobCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "job <worker-id>",
		Short: "Dispatch a job to a named worker",
		Long: `Dispatch a job to a named worker and print its result envelope.

Available workers:
  process-file   ingest a single file; input {"fileName": "..."}
  etl-batch      sweep the whole storage directory; input {"batchSize": N, "concurrency": N}

Example:
  intake job process-file --input '{"fileName":"advocate_001.json"}'
  intake job etl-batch --input '{"batchSize":50,"concurrency":10}' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "directory of candidate files (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.Input, "input", "{}", "job input as JSON")
	cmd.Flags().StringVar(&opts.JobID, "job-id", "", "job id (minted if omitted)")
	cmd.Flags().StringVar(&opts.Source, "source", "cli", "job source tag")

	return cmd
}

func runJob(opts *JobOptions, workerID string, cmd *cobra.Command) error {
	if !json.Valid([]byte(opts.Input)) {
		return WrapExitError(ExitCommandError, "invalid --input JSON", fmt.Errorf("%q", opts.Input))
	}

	env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
	if err != nil {
		return err
	}
	defer env.Close()

	registry, err := worker.NewRegistry(project.SystemClock{},
		&worker.ProcessFileWorker{Processor: env.processor},
		&worker.ETLBatchWorker{Processor: env.processor},
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build worker registry", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := registry.Dispatch(ctx, worker.Request{
		WorkerID: workerID,
		Input:    json.RawMessage(opts.Input),
		JobID:    opts.JobID,
		Source:   opts.Source,
	})

	if opts.Format == "json" {
		if err := outputJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Job %s (%s): %s\n", result.JobID, result.WorkerID, result.Message)
		if result.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", result.Error)
		}
		fmt.Fprintf(w, "  Duration: %dms\n", result.DurationMS)
	}

	if !result.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("job %s failed", result.JobID))
	}
	return nil
}
