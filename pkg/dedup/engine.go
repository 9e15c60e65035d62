// Package dedup runs the ingest pipeline: it filters inputs already
// ingested, feeds every accepted line into the store with batched
// commits, marks finished files and exports lines never exported before.
package dedup

import (
	"context"
	"os"
	"time"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/counters"
	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/export"
	"github.com/eunmann/wordvault/pkg/intake"
	"github.com/eunmann/wordvault/pkg/lines"
	"github.com/eunmann/wordvault/pkg/membudget"
	"github.com/eunmann/wordvault/pkg/memdiag"
	"github.com/eunmann/wordvault/pkg/s3fetch"
)

// DefaultProgressEvery is how many raw input bytes pass between two
// progress reports.
const DefaultProgressEvery = 4 << 20

// ProgressSink receives (bytes processed, total bytes) for the current
// file. It has no effect on correctness.
type ProgressSink interface {
	Progress(processed, total int64)
}

// fileStarter is implemented by sinks that want to know when a new file
// begins, such as logging.ByteProgress.
type fileStarter interface {
	StartFile(path string)
}

// Fetcher stages S3 objects as local files.
type Fetcher interface {
	List(ctx context.Context, uri string) ([]s3fetch.Object, error)
	Fetch(ctx context.Context, obj s3fetch.Object, dir string) (string, error)
}

var _ Fetcher = (*s3fetch.Client)(nil)

// Options configures an Engine.
type Options struct {
	// BatchBytes is the key volume after which the open transaction is
	// checkpointed. Zero uses membudget.DefaultBatchBytes.
	BatchBytes int64

	// Lines configures reading and validation.
	Lines lines.Options

	// Export configures the output files.
	Export export.Options

	// Progress is optional.
	Progress ProgressSink
	// ProgressEvery defaults to DefaultProgressEvery.
	ProgressEvery int64

	// Fetcher serves s3:// inputs. Without one they are rejected.
	Fetcher Fetcher
	// StagingDir holds the private per-run directories S3 objects are
	// downloaded into. Empty uses os.TempDir().
	StagingDir string

	// Memory samples the heap at every checkpoint. Optional.
	Memory *memdiag.Tracker
}

// Engine ingests inputs into a store and exports from it.
type Engine struct {
	store    *dedupstore.Store
	tracker  *intake.Tracker
	counters *counters.Aggregate
	exporter *export.Writer
	opts     Options
	now      func() time.Time
}

// New returns an Engine over an open store.
func New(store *dedupstore.Store, opts Options) *Engine {
	if opts.BatchBytes <= 0 {
		opts.BatchBytes = int64(membudget.DefaultBatchBytes)
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}
	return &Engine{
		store:    store,
		tracker:  intake.NewTracker(store),
		counters: counters.New(store),
		exporter: export.New(store, opts.Export),
		opts:     opts,
		now:      time.Now,
	}
}

// Export writes every line not exported before.
func (e *Engine) Export(ctx context.Context) (export.Result, error) {
	return e.exporter.Export(ctx)
}

// Totals returns the all-time counters.
func (e *Engine) Totals() (counters.Totals, error) {
	return e.counters.Load()
}

// RecordRun adds a finished run to the counters and the run history,
// and returns the new all-time totals. exported is the number of lines
// the run's export wrote.
func (e *Engine) RecordRun(ctx context.Context, run RunResult, exported int64) (counters.Totals, error) {
	totals, err := e.counters.Record(ctx, counters.RunTotals{
		Words:      run.Lines,
		Duplicates: run.Duplicates,
		NonWords:   run.NonWords,
		NewWords:   run.New,
		Files:      int64(run.Ingested),
	})
	if err != nil {
		return counters.Totals{}, storeError("", err)
	}

	err = e.store.RecordRun(dedupstore.RunRecord{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Files:      int64(run.Ingested),
		Lines:      run.Lines,
		New:        run.New,
		Duplicates: run.Duplicates,
		NonWords:   run.NonWords,
		Exported:   exported,
	})
	if err != nil {
		return totals, storeError("", err)
	}

	log := logctx.FromContext(ctx)
	log.Debug().Str("run_id", run.ID).Msg("run recorded")
	return totals, nil
}

func (e *Engine) startFile(path string) {
	if s, ok := e.opts.Progress.(fileStarter); ok {
		s.StartFile(path)
	}
}

func (e *Engine) progress(processed, total int64) {
	if e.opts.Progress != nil {
		e.opts.Progress.Progress(processed, total)
	}
}
