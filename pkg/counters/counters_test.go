package counters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eunmann/wordvault/pkg/dedupstore"
)

func openAggregate(t *testing.T) (*Aggregate, *dedupstore.Store) {
	t.Helper()
	s, err := dedupstore.Open(dedupstore.DefaultConfig(filepath.Join(t.TempDir(), "wordvault.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestLoadEmpty(t *testing.T) {
	a, _ := openAggregate(t)
	got, err := a.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != (Totals{}) {
		t.Errorf("Load() = %+v, want zero", got)
	}
}

func TestRecordAccumulates(t *testing.T) {
	a, _ := openAggregate(t)
	ctx := context.Background()

	runs := []RunTotals{
		{Words: 5, Duplicates: 1, NonWords: 2, NewWords: 2, Files: 1},
		{Words: 3, Duplicates: 3, NonWords: 0, NewWords: 0, Files: 2},
		{},
	}

	var prev Totals
	for i, run := range runs {
		got, err := a.Record(ctx, run)
		if err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
		if got.Words < prev.Words || got.Duplicates < prev.Duplicates ||
			got.NonWords < prev.NonWords || got.NewWords < prev.NewWords ||
			got.Files < prev.Files || got.Runs <= prev.Runs {
			t.Errorf("Record %d: totals went backwards: %+v -> %+v", i, prev, got)
		}
		prev = got
	}

	want := Totals{Words: 8, Duplicates: 4, NonWords: 2, NewWords: 2, Files: 3, Runs: 3}
	if prev != want {
		t.Errorf("final totals = %+v, want %+v", prev, want)
	}

	loaded, err := a.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != want {
		t.Errorf("Load() = %+v, want %+v", loaded, want)
	}
}

func TestRecordRejectsNegative(t *testing.T) {
	a, _ := openAggregate(t)
	if _, err := a.Record(context.Background(), RunTotals{Words: -1}); err == nil {
		t.Fatal("Record with negative delta should fail")
	}
	got, err := a.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != (Totals{}) {
		t.Errorf("Load() = %+v after rejected record, want zero", got)
	}
}

func TestRecordDuringBatch(t *testing.T) {
	a, s := openAggregate(t)
	b, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	defer b.Rollback()

	_, err = a.Record(context.Background(), RunTotals{Words: 1})
	if !errors.Is(err, dedupstore.ErrBatchInProgress) {
		t.Errorf("Record error = %v, want ErrBatchInProgress", err)
	}
}
