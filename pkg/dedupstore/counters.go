package dedupstore

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddCounter adds delta to the named counter in its own transaction and
// returns the new total. A missing counter starts at zero.
func (s *Store) AddCounter(name string, delta int64) (int64, error) {
	if s.batch != nil {
		return 0, ErrBatchInProgress
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin counter transaction: %w", err)
	}

	var total int64
	err = tx.QueryRow(`
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = value + excluded.value
		RETURNING value
	`, name, delta).Scan(&total)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("update counter %q: %w", name, classify(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit counter %q: %w", name, classify(err))
	}
	return total, nil
}

// Counter returns the value of the named counter, or zero if it was never set.
func (s *Store) Counter(name string) (int64, error) {
	var value int64
	err := s.conn().QueryRow("SELECT value FROM counters WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %q: %w", name, err)
	}
	return value, nil
}
