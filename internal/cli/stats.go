package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/store"
)

// targetTables are the denormalized collections the projector writes.
var targetTables = []string{"users", "brands", "programs", "program_memberships", "tasks"}

// statsReport is the stats command payload: target collection sizes plus
// the quarantine summary.
type statsReport struct {
	Collections map[string]int        `json:"collections"`
	Quarantine  store.QuarantineStats `json:"quarantine"`
}

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Storage  string
	Database string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the target collections and the quarantine area",
		Long: `Summarize the target collections and the quarantine area: row counts
per collection, quarantine totals, counts by error type and status, and
the most recent failures.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(opts.RootOptions, opts.Storage, opts.Database)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmdContext(cmd)
			report := statsReport{Collections: make(map[string]int, len(targetTables))}
			for _, table := range targetTables {
				n, err := env.store.Count(ctx, table)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to count "+table, err)
				}
				report.Collections[table] = n
			}

			report.Quarantine, err = env.service.Stats(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to get stats", err)
			}

			if opts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), report)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Collections:")
			printCounts(cmd, report.Collections)

			fmt.Fprintf(w, "\nQuarantine records: %d\n", report.Quarantine.Total)

			fmt.Fprintln(w, "\nBy error type:")
			printCounts(cmd, report.Quarantine.ByType)

			fmt.Fprintln(w, "\nBy status:")
			printCounts(cmd, report.Quarantine.ByStatus)

			if len(report.Quarantine.RecentFailures) > 0 {
				fmt.Fprintln(w, "\nRecent failures:")
				for _, item := range report.Quarantine.RecentFailures {
					fmt.Fprintf(w, "  %s  %-20s %s\n", item.ID, item.ErrorType, item.FileName)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "directory of candidate files (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

// printCounts writes map counts with sorted keys for stable output.
func printCounts(cmd *cobra.Command, counts map[string]int) {
	w := cmd.OutOrStdout()
	if len(counts) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-22s %d\n", k, counts[k])
	}
}
