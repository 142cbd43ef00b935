package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/store"
)

// QuarantineOptions holds flags shared by the quarantine subcommands.
type QuarantineOptions struct {
	*RootOptions
	Storage  string
	Database string
}

// NewQuarantineCommand creates the quarantine command group.
func NewQuarantineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuarantineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Inspect and manage quarantined files",
		Long: `Inspect and manage quarantined files.

Files that fail ingestion are recorded with their raw text and failure
reason. Operators can inspect records, edit the raw text, replay them,
mark them ignored, or delete them.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", "", "directory of candidate files (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(newQuarantineListCommand(opts))
	cmd.AddCommand(newQuarantineShowCommand(opts))
	cmd.AddCommand(newQuarantineEditCommand(opts))
	cmd.AddCommand(newQuarantineRetryCommand(opts))
	cmd.AddCommand(newQuarantineIgnoreCommand(opts))
	cmd.AddCommand(newQuarantineRemoveCommand(opts))

	return cmd
}

func newQuarantineListCommand(opts *QuarantineOptions) *cobra.Command {
	var status, errorType string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quarantine records",
		Args:  cobra.NoArgs,
		Example: `  intake quarantine list
  intake quarantine list --status failed --error-type json_parse_error
  intake quarantine list --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			items, err := env.service.List(cmdContext(cmd), store.QuarantineFilter{
				Status:    status,
				ErrorType: errorType,
				Limit:     limit,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list quarantine", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), items)
			}

			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, "No quarantine records.")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(w, "%s  %-20s %-10s retries=%d  %s\n",
					item.ID, item.ErrorType, item.Status, item.RetryCount, item.FileName)
			}
			fmt.Fprintf(w, "\n%d record(s)\n", len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (failed|retrying|fixed|ignored)")
	cmd.Flags().StringVar(&errorType, "error-type", "", "filter by error type")
	cmd.Flags().IntVar(&limit, "limit", 0, "max records to return (0 = all)")

	return cmd
}

func newQuarantineShowCommand(opts *QuarantineOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one quarantine record, including its raw text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			item, err := env.service.Get(cmdContext(cmd), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to get quarantine record", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), item)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:          %s\n", item.ID)
			fmt.Fprintf(w, "File:        %s\n", item.FileName)
			if item.FilePath != "" {
				fmt.Fprintf(w, "Path:        %s\n", item.FilePath)
			}
			fmt.Fprintf(w, "Error type:  %s\n", item.ErrorType)
			fmt.Fprintf(w, "Error:       %s\n", item.ErrorMessage)
			fmt.Fprintf(w, "Status:      %s\n", item.Status)
			fmt.Fprintf(w, "Attempted:   %s\n", item.AttemptedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "Retries:     %d\n", item.RetryCount)
			if item.LastRetryAt != nil {
				fmt.Fprintf(w, "Last retry:  %s\n", item.LastRetryAt.Format(time.RFC3339))
			}
			if item.FixedAt != nil {
				fmt.Fprintf(w, "Fixed:       %s\n", item.FixedAt.Format(time.RFC3339))
			}
			if item.Notes != "" {
				fmt.Fprintf(w, "Notes:       %s\n", item.Notes)
			}
			fmt.Fprintln(w, "\nRaw data:")
			fmt.Fprintln(w, item.RawData)
			return nil
		},
	}
	return cmd
}

func newQuarantineEditCommand(opts *QuarantineOptions) *cobra.Command {
	var dataFile, data, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a record's raw text with corrected JSON",
		Long: `Replace a record's raw text with corrected JSON.

The new text must parse as strict JSON. The record's status resets to
failed so it can be retried.`,
		Args: cobra.ExactArgs(1),
		Example: `  intake quarantine edit 3f2a... --file corrected.json
  intake quarantine edit 3f2a... --data '{"user_id":"u1", ...}' --notes "fixed missing brace"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (dataFile == "") == (data == "") {
				return NewExitError(ExitCommandError, "exactly one of --file or --data is required")
			}
			raw := data
			if dataFile != "" {
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read data file", err)
				}
				raw = string(b)
			}

			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.Edit(cmdContext(cmd), args[0], raw, notes); err != nil {
				return WrapExitError(ExitCommandError, "edit failed", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": store.StatusFailed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s updated; status reset to failed.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "file", "", "path to file holding the corrected JSON")
	cmd.Flags().StringVar(&data, "data", "", "corrected JSON inline")
	cmd.Flags().StringVar(&notes, "notes", "", "operator notes")

	return cmd
}

func newQuarantineRetryCommand(opts *QuarantineOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "retry <id> [<id>...]",
		Short: "Replay quarantined records through validation and projection",
		Long: `Replay quarantined records through validation and projection.

A single id is retried synchronously and any failure is reported with a
non-zero exit code. Multiple ids are retried as a batch: terminal and
missing records are skipped, records at the retry cap are skipped unless
--force, and each record's outcome is independent.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmdContext(cmd)
			w := cmd.OutOrStdout()

			if len(args) == 1 && !force {
				res, err := env.service.Retry(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "retry failed", err)
				}
				if opts.Format == "json" {
					return outputJSON(w, res)
				}
				fmt.Fprintf(w, "Record %s fixed (user %s).\n", args[0], res.UserID)
				return nil
			}

			res := env.service.BatchRetry(ctx, args, force)
			if opts.Format == "json" {
				return outputJSON(w, res)
			}
			fmt.Fprintf(w, "Batch retry: %d fixed, %d failed, %d skipped\n", res.Success, res.Failed, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.ID, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "retry even past the retry cap")

	return cmd
}

func newQuarantineIgnoreCommand(opts *QuarantineOptions) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:           "ignore <id>",
		Short:         "Mark a record ignored (terminal)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.Ignore(cmdContext(cmd), args[0], notes); err != nil {
				return WrapExitError(ExitCommandError, "ignore failed", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": store.StatusIgnored})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s marked ignored.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "reason for ignoring")

	return cmd
}

func newQuarantineRemoveCommand(opts *QuarantineOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Delete a record and its quarantined file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.Delete(cmdContext(cmd), args[0]); err != nil {
				return WrapExitError(ExitCommandError, "delete failed", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "deleted": "true"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s deleted.\n", args[0])
			return nil
		},
	}
	return cmd
}

// cmdContext returns the command's context, falling back to Background.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
