package dedupstore

import (
	"fmt"
	"time"
)

// RunRecord is the persisted summary of one ingest run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int64
	Lines      int64
	New        int64
	Duplicates int64
	NonWords   int64
	Exported   int64
}

// RecordRun stores the summary of a finished run.
func (s *Store) RecordRun(r RunRecord) error {
	_, err := s.conn().Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, files, lines, new_words, duplicates, non_words, exported)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
		r.Files, r.Lines, r.New, r.Duplicates, r.NonWords, r.Exported,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, classify(err))
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := s.conn().Query(`
		SELECT run_id, started_at, finished_at, files, lines, new_words, duplicates, non_words, exported
		FROM runs ORDER BY finished_at DESC, run_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Files, &r.Lines, &r.New, &r.Duplicates, &r.NonWords, &r.Exported); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse run start %q: %w", started, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parse run finish %q: %w", finished, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
