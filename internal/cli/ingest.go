package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/dedup"
	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/export"
	"github.com/eunmann/wordvault/pkg/logging"
	"github.com/eunmann/wordvault/pkg/membudget"
	"github.com/eunmann/wordvault/pkg/memdiag"
	"github.com/eunmann/wordvault/pkg/s3fetch"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Dirs        []string
	Files       []string
	OutputDir   string
	OutputName  string
	BatchSize   string
	MaxFileSize string
	Encoding    string
	StagingDir  string
	NoExport    bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest [s3://bucket/prefix | path]...",
		Short: "Ingest wordlists and export the new lines",
		Long: `Ingest every line of the given inputs into the store, then export the
lines never exported before.

Inputs are directories (-i, their files are read in name order), single
files (-f), positional paths, or s3://bucket/prefix URIs. Files whose
content was ingested before are skipped.

Example:
  wordvault ingest -i ./raw -o ./out --db ./vault
  wordvault ingest -f rockyou.txt.gz -o ./out --db ./vault --output-name rock
  wordvault ingest s3://lists/2024/ --db ./vault --no-export`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Dirs, "input", "i", nil, "input directory (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Files, "file", "f", nil, "input file (repeatable)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory for exported wordlists")
	cmd.Flags().StringVar(&opts.OutputName, "output-name", export.DefaultBaseName, "base name of exported files")
	cmd.Flags().StringVar(&opts.BatchSize, "batch-size", "", "store transaction size, e.g. 100MB (env "+membudget.EnvBatchSize+")")
	cmd.Flags().StringVar(&opts.MaxFileSize, "max-file-size", "", "size cap of each exported file, e.g. 1GiB")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "force an input encoding instead of detecting it")
	cmd.Flags().StringVar(&opts.StagingDir, "staging-dir", "", "download directory for S3 inputs")
	cmd.Flags().BoolVar(&opts.NoExport, "no-export", false, "only ingest, do not export")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *IngestOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	inputs := append(append(append([]string{}, opts.Dirs...), opts.Files...), args...)
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	if len(inputs) == 0 {
		return usageError("no inputs: use -i DIR, -f FILE, a path or an s3:// URI")
	}
	if flags.Changed("output") {
		cfg.Output.Dir = opts.OutputDir
	}
	if flags.Changed("output-name") {
		cfg.Output.BaseName = opts.OutputName
	}
	if flags.Changed("max-file-size") {
		cfg.Output.MaxFileSize = opts.MaxFileSize
	}
	if flags.Changed("encoding") {
		cfg.Ingest.Encoding = opts.Encoding
	}
	if flags.Changed("staging-dir") {
		cfg.S3.StagingDir = opts.StagingDir
	}

	cfg.DefaultStoreDir()
	if opts.NoExport {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateExport()
	}
	if err != nil {
		return err
	}

	ctx := commandContext(cmd, "ingest")
	log := logctx.FromContext(ctx)

	batch, err := membudget.ResolveBatch(opts.BatchSize, cfg.Ingest.BatchSize)
	if err != nil {
		return err
	}
	log.Info().
		Uint64("batch_bytes", batch.Bytes).
		Str("source", string(batch.Source)).
		Bool("clamped", batch.Clamped).
		Msg("batch size resolved")

	store, err := dedupstore.Open(cfg.DedupStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	mem := memdiag.NewTracker(memdiag.DefaultConfig(), log)
	mem.Start()
	defer mem.Stop()

	engineOpts := dedup.Options{
		BatchBytes: int64(batch.Bytes),
		Lines:      cfg.LineOptions(),
		Export:     cfg.ExportOptions(),
		Progress:   logging.NewByteProgress(log, 0),
		StagingDir: cfg.S3.StagingDir,
		Memory:     mem,
	}
	if hasS3(inputs) {
		client, err := s3fetch.NewClient(ctx, cfg.DownloaderConfig())
		if err != nil {
			return err
		}
		engineOpts.Fetcher = client
	}
	engine := dedup.New(store, engineOpts)

	run, ingestErr := engine.Ingest(ctx, inputs)

	var exported export.Result
	if ingestErr == nil && !opts.NoExport {
		if exported, err = engine.Export(ctx); err != nil {
			return err
		}
	}

	// Committed work counts toward the totals even when the run stopped early.
	if !run.Committed() && ingestErr != nil {
		return ingestErr
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	totals, err := engine.RecordRun(ctx, run, exported.Lines)
	if err != nil {
		return errors.Join(ingestErr, err)
	}

	printRunSummary(cmd.OutOrStdout(), run, exported, !opts.NoExport && ingestErr == nil, totals)
	return ingestErr
}

func hasS3(inputs []string) bool {
	for _, in := range inputs {
		if s3fetch.IsS3URI(in) {
			return true
		}
	}
	return false
}
