// Package cli implements the command-line interface for wordvault.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eunmann/wordvault/internal/config"
	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Debug      bool
	LogFormat  string
	ConfigPath string
	StoreDir   string
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wordvault",
		Short: "Deduplicate wordlists against a persistent store",
		Long: `wordvault ingests wordlists of any encoding into a persistent store and
exports only the lines it has never exported before.

Example:
  wordvault ingest -i ./raw -o ./out --db ./vault
  wordvault export -o ./out --db ./vault
  wordvault stats --db ./vault`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", logging.FormatAuto, "log format (auto|json|console)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML or TOML config file")
	cmd.PersistentFlags().StringVar(&opts.StoreDir, "db", "", "store directory (defaults to the output directory)")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// loadConfig reads the config file, if any, and applies the global flags
// that were set explicitly. It also initializes logging.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.Dir = opts.StoreDir
	}
	if flags.Changed("debug") {
		cfg.Logging.Debug = opts.Debug
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.LogFormat
	}

	human, err := logging.ResolveFormat(cfg.Logging.Format)
	if err != nil {
		return cfg, err
	}
	logging.Init(cfg.Logging.Debug, human)
	return cfg, nil
}

// commandContext attaches a run-scoped logger to the command context.
func commandContext(cmd *cobra.Command, name string) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logctx.WithLogger(ctx, *logging.L())
	ctx = logctx.WithStr(ctx, "command", name)
	ctx, _ = logctx.WithRunID(ctx)
	return ctx
}

var errUsage = errors.New("usage error")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
