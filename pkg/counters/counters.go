// Package counters keeps the all-time aggregate totals of every run.
package counters

import (
	"context"
	"fmt"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/dedupstore"
)

// Counter names as stored.
const (
	TotalWords      = "total_words"
	TotalDuplicates = "total_duplicates"
	TotalNonWords   = "total_non_words"
	TotalNewWords   = "total_new_words"
	TotalFiles      = "total_files"
	TotalRuns       = "total_runs"
)

// Totals holds one value per counter.
type Totals struct {
	Words      int64
	Duplicates int64
	NonWords   int64
	NewWords   int64
	Files      int64
	Runs       int64
}

// RunTotals is what a single run contributes. Runs is implied.
type RunTotals struct {
	Words      int64
	Duplicates int64
	NonWords   int64
	NewWords   int64
	Files      int64
}

// Store is the subset of the dedup store the counters need.
type Store interface {
	AddCounter(name string, delta int64) (int64, error)
	Counter(name string) (int64, error)
}

var _ Store = (*dedupstore.Store)(nil)

// Aggregate reads and advances the totals.
type Aggregate struct {
	store Store
}

// New returns an Aggregate backed by store.
func New(store Store) *Aggregate {
	return &Aggregate{store: store}
}

type namedValue struct {
	name string
	ptr  *int64
}

func (t *Totals) fields() []namedValue {
	return []namedValue{
		{TotalWords, &t.Words},
		{TotalDuplicates, &t.Duplicates},
		{TotalNonWords, &t.NonWords},
		{TotalNewWords, &t.NewWords},
		{TotalFiles, &t.Files},
		{TotalRuns, &t.Runs},
	}
}

// Record adds one run to the totals and returns the new all-time values.
// Negative deltas are rejected so the totals never decrease.
func (a *Aggregate) Record(ctx context.Context, run RunTotals) (Totals, error) {
	delta := Totals{
		Words:      run.Words,
		Duplicates: run.Duplicates,
		NonWords:   run.NonWords,
		NewWords:   run.NewWords,
		Files:      run.Files,
		Runs:       1,
	}

	var out Totals
	in, res := delta.fields(), out.fields()
	for _, f := range in {
		if *f.ptr < 0 {
			return Totals{}, fmt.Errorf("counter %s: negative delta %d", f.name, *f.ptr)
		}
	}
	for i, f := range in {
		total, err := a.store.AddCounter(f.name, *f.ptr)
		if err != nil {
			return Totals{}, err
		}
		*res[i].ptr = total
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Int64("total_words", out.Words).
		Int64("total_new_words", out.NewWords).
		Int64("total_runs", out.Runs).
		Msg("counters updated")
	return out, nil
}

// Load returns the current totals. Counters never written read as zero.
func (a *Aggregate) Load() (Totals, error) {
	var out Totals
	for _, f := range out.fields() {
		v, err := a.store.Counter(f.name)
		if err != nil {
			return Totals{}, err
		}
		*f.ptr = v
	}
	return out, nil
}
