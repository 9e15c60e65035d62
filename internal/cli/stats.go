package cli

import (
	"github.com/spf13/cobra"

	"github.com/eunmann/wordvault/pkg/counters"
	"github.com/eunmann/wordvault/pkg/dedupstore"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Runs int
}

// storeStats is what the stats command reports.
type storeStats struct {
	Totals   counters.Totals
	Lines    int64
	Pending  int64
	Markers  int64
	DBBytes  int64
	LastRuns []dedupstore.RunRecord
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show all-time totals and recent runs",
		Long: `Show the all-time counters, store sizes and the most recent runs.

Example:
  wordvault stats --db ./vault --runs 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "number of recent runs to list")

	return cmd
}

func runStats(cmd *cobra.Command, opts *StatsOptions) error {
	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.Runs < 0 {
		return usageError("--runs must not be negative")
	}

	store, err := dedupstore.Open(cfg.DedupStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := collectStats(store, opts.Runs)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), stats)
	return nil
}

func collectStats(store *dedupstore.Store, runs int) (storeStats, error) {
	var s storeStats
	var err error

	if s.Totals, err = counters.New(store).Load(); err != nil {
		return s, err
	}
	if s.Lines, err = store.LineCount(); err != nil {
		return s, err
	}
	if s.Pending, err = store.PendingCount(); err != nil {
		return s, err
	}
	if s.Markers, err = store.MarkerCount(); err != nil {
		return s, err
	}
	if s.DBBytes, err = store.SizeBytes(); err != nil {
		return s, err
	}
	if runs > 0 {
		if s.LastRuns, err = store.RecentRuns(runs); err != nil {
			return s, err
		}
	}
	return s, nil
}
