package dedupstore

import "fmt"

// ExportFile is one entry of the export journal: an output file and the
// number of its bytes whose lines are recorded as exported.
type ExportFile struct {
	Path          string
	CommittedSize int64
}

// PendingExport returns up to limit keys in state New, in key order,
// strictly after the given key. A nil after starts from the beginning.
func (s *Store) PendingExport(after []byte, limit int) ([][]byte, error) {
	query := "SELECT word FROM lines WHERE state = 0 ORDER BY word LIMIT ?"
	args := []any{limit}
	if after != nil {
		query = "SELECT word FROM lines WHERE state = 0 AND word > ? ORDER BY word LIMIT ?"
		args = []any{after, limit}
	}

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending lines: %w", err)
	}
	defer rows.Close()

	keys := make([][]byte, 0, limit)
	for rows.Next() {
		var key []byte
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan pending line: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending lines: %w", err)
	}
	return keys, nil
}

// CommitExport flips keys to state Old and records the committed size of
// every output file they were written to, in a single transaction.
func (s *Store) CommitExport(keys [][]byte, files map[string]int64) error {
	if s.batch != nil {
		return ErrBatchInProgress
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin export transaction: %w", err)
	}

	stmt, err := tx.Prepare("UPDATE lines SET state = 1 WHERE word = ?")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare state update: %w", err)
	}
	for _, key := range keys {
		if _, err := stmt.Exec(key); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("mark line exported: %w", classify(err))
		}
	}
	stmt.Close()

	for path, size := range files {
		_, err := tx.Exec(`
			INSERT INTO export_files (path, committed_size) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET committed_size = excluded.committed_size
		`, path, size)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record export file %q: %w", path, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", classify(err))
	}
	return nil
}

// RegisterExportFile journals a newly created output file with nothing
// committed yet.
func (s *Store) RegisterExportFile(path string) error {
	_, err := s.conn().Exec(`
		INSERT INTO export_files (path, committed_size) VALUES (?, 0)
		ON CONFLICT(path) DO UPDATE SET committed_size = 0
	`, path)
	if err != nil {
		return fmt.Errorf("register export file %q: %w", path, classify(err))
	}
	return nil
}

// ForgetExportFile removes an output file from the journal.
func (s *Store) ForgetExportFile(path string) error {
	if _, err := s.conn().Exec("DELETE FROM export_files WHERE path = ?", path); err != nil {
		return fmt.Errorf("forget export file %q: %w", path, err)
	}
	return nil
}

// ExportJournal returns every journaled output file.
func (s *Store) ExportJournal() ([]ExportFile, error) {
	rows, err := s.conn().Query("SELECT path, committed_size FROM export_files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("query export journal: %w", err)
	}
	defer rows.Close()

	var files []ExportFile
	for rows.Next() {
		var f ExportFile
		if err := rows.Scan(&f.Path, &f.CommittedSize); err != nil {
			return nil, fmt.Errorf("scan export journal: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export journal: %w", err)
	}
	return files, nil
}
