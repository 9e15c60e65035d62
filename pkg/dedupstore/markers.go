package dedupstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HasMarker returns true if a file with the given content hash was ingested.
func (s *Store) HasMarker(hash string) (bool, error) {
	var exists int
	err := s.conn().QueryRow("SELECT 1 FROM file_markers WHERE hash = ?", hash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check file marker: %w", err)
	}
	return true, nil
}

// PutMarker records that the file with the given content hash was ingested.
// Writing the same marker twice is harmless.
func (s *Store) PutMarker(hash string, size int64) error {
	_, err := s.conn().Exec(
		"INSERT INTO file_markers (hash, size, processed_at) VALUES (?, ?, ?) ON CONFLICT(hash) DO NOTHING",
		hash, size, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put file marker: %w", classify(err))
	}
	return nil
}

// MarkerCount returns the number of ingested files.
func (s *Store) MarkerCount() (int64, error) {
	var n int64
	if err := s.conn().QueryRow("SELECT COUNT(*) FROM file_markers").Scan(&n); err != nil {
		return 0, fmt.Errorf("count file markers: %w", err)
	}
	return n, nil
}
