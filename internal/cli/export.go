package cli

import (
	"github.com/spf13/cobra"

	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	OutputDir   string
	OutputName  string
	MaxFileSize string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export lines never exported before",
		Long: `Write every stored line that was never exported into numbered files
<name><n>.txt in the output directory. Numbering continues after the
highest existing file, and output left by an interrupted export is
repaired first.

Example:
  wordvault export -o ./out --db ./vault`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory for exported wordlists")
	cmd.Flags().StringVar(&opts.OutputName, "output-name", export.DefaultBaseName, "base name of exported files")
	cmd.Flags().StringVar(&opts.MaxFileSize, "max-file-size", "", "size cap of each exported file, e.g. 1GiB")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = opts.OutputDir
	}
	if flags.Changed("output-name") {
		cfg.Output.BaseName = opts.OutputName
	}
	if flags.Changed("max-file-size") {
		cfg.Output.MaxFileSize = opts.MaxFileSize
	}
	cfg.DefaultStoreDir()
	if err := cfg.ValidateExport(); err != nil {
		return err
	}

	ctx := commandContext(cmd, "export")

	store, err := dedupstore.Open(cfg.DedupStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := export.New(store, cfg.ExportOptions()).Export(ctx)
	if err != nil {
		return err
	}
	printExport(cmd.OutOrStdout(), res)
	return nil
}
