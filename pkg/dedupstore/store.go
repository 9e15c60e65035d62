// Package dedupstore provides the SQLite-backed store that is the ground truth
// for wordlist deduplication: seen lines, ingested file markers, counters,
// the export journal and run history, each in its own table.
package dedupstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eunmann/wordvault/pkg/logging"
)

// DefaultMaxSizeBytes is the default size reservation for the store (50 GiB).
const DefaultMaxSizeBytes int64 = 50 * 1024 * 1024 * 1024

// pageSize is applied to new databases only; existing files keep theirs.
const pageSize = 32768

// Config holds configuration for the store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
	// Driver selects the SQLite driver: DriverCGo (default) or DriverPure.
	Driver string
	// Synchronous sets the SQLite synchronous pragma (OFF, NORMAL, FULL).
	Synchronous string
	// MaxSizeBytes is the fixed size reservation. Writes that would grow the
	// database past it fail with ErrStoreFull.
	MaxSizeBytes int64
	// MmapSize is the mmap size in bytes (default 256MB).
	MmapSize int64
	// CacheSizeKB is the page cache size in KB (default 64MB).
	CacheSizeKB int
}

// DefaultConfig returns a default configuration for the given database path.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:       dbPath,
		Driver:       DriverCGo,
		Synchronous:  "NORMAL",
		MaxSizeBytes: DefaultMaxSizeBytes,
		MmapSize:     268435456, // 256MB
		CacheSizeKB:  65536,     // 64MB
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: DBPath is required", ErrInvalidConfig)
	}
	switch c.Driver {
	case "", DriverCGo, DriverPure:
	default:
		return fmt.Errorf("%w: unknown driver %q: must be %s or %s", ErrInvalidConfig, c.Driver, DriverCGo, DriverPure)
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
	default:
		return fmt.Errorf("%w: invalid Synchronous value %q: must be OFF, NORMAL, or FULL", ErrInvalidConfig, c.Synchronous)
	}
	if c.MaxSizeBytes < 0 {
		return fmt.Errorf("%w: MaxSizeBytes must be non-negative, got %d", ErrInvalidConfig, c.MaxSizeBytes)
	}
	if c.MaxSizeBytes > 0 && c.MaxSizeBytes < 16*pageSize {
		return fmt.Errorf("%w: MaxSizeBytes %d is below the minimum of %d", ErrInvalidConfig, c.MaxSizeBytes, 16*pageSize)
	}
	if c.MmapSize < 0 {
		return fmt.Errorf("%w: MmapSize must be non-negative, got %d", ErrInvalidConfig, c.MmapSize)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("%w: CacheSizeKB must be non-negative, got %d", ErrInvalidConfig, c.CacheSizeKB)
	}
	return nil
}

// Store is the deduplication store. It holds a single connection and is
// meant to be used by one goroutine in one process at a time.
type Store struct {
	db  *sql.DB
	cfg Config

	// batch is the open write batch, if any. While it is open every store
	// query runs inside its transaction.
	batch *Batch
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open creates or opens the store described by cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverCGo
	}
	if cfg.Synchronous == "" {
		cfg.Synchronous = "NORMAL"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.WithPhase("store_open")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open(cfg.Driver, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Pragmas are per connection, so the pool is pinned to exactly one
	// connection that is never recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA page_size=%d", pageSize),
		"PRAGMA locking_mode=EXCLUSIVE",
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous),
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA mmap_size=%d", cfg.MmapSize),
		fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	if err := reserveSize(db, cfg.MaxSizeBytes); err != nil {
		db.Close()
		return nil, err
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", classify(err))
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("driver", cfg.Driver).
		Str("synchronous", cfg.Synchronous).
		Int64("max_size_bytes", cfg.MaxSizeBytes).
		Msg("opened dedup store")

	return &Store{db: db, cfg: cfg}, nil
}

// reserveSize caps the database at maxBytes via max_page_count. A store that
// already exceeds the reservation is rejected up front.
func reserveSize(db *sql.DB, maxBytes int64) error {
	if maxBytes == 0 {
		return nil
	}

	var actualPageSize, pageCount int64
	if err := db.QueryRow("PRAGMA page_size").Scan(&actualPageSize); err != nil {
		return fmt.Errorf("read page size: %w", err)
	}
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return fmt.Errorf("read page count: %w", err)
	}

	maxPages := maxBytes / actualPageSize
	if pageCount > maxPages {
		return fmt.Errorf("%w: store holds %d bytes, reservation is %d bytes",
			ErrStoreFull, pageCount*actualPageSize, maxBytes)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA max_page_count=%d", maxPages)); err != nil {
		return fmt.Errorf("set max page count: %w", err)
	}
	return nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lines (
			word BLOB PRIMARY KEY,
			state INTEGER NOT NULL DEFAULT 0
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS lines_pending ON lines(word) WHERE state = 0`,
		`CREATE TABLE IF NOT EXISTS file_markers (
			hash TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			processed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS export_files (
			path TEXT PRIMARY KEY,
			committed_size INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			files INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			new_words INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			non_words INTEGER NOT NULL,
			exported INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// conn returns the open batch transaction, or the database when no batch is open.
func (s *Store) conn() querier {
	if s.batch != nil {
		return s.batch.tx
	}
	return s.db
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Close closes the database connection.
// An open batch is rolled back.
func (s *Store) Close() error {
	if s.batch != nil {
		_ = s.batch.Rollback()
	}
	return s.db.Close()
}

// LineCount returns the number of distinct lines in the store.
func (s *Store) LineCount() (int64, error) {
	var n int64
	if err := s.conn().QueryRow("SELECT COUNT(*) FROM lines").Scan(&n); err != nil {
		return 0, fmt.Errorf("count lines: %w", err)
	}
	return n, nil
}

// PendingCount returns the number of lines not yet exported.
func (s *Store) PendingCount() (int64, error) {
	var n int64
	if err := s.conn().QueryRow("SELECT COUNT(*) FROM lines WHERE state = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending lines: %w", err)
	}
	return n, nil
}

// SizeBytes returns the current database size in bytes.
func (s *Store) SizeBytes() (int64, error) {
	var pages, size int64
	if err := s.conn().QueryRow("PRAGMA page_count").Scan(&pages); err != nil {
		return 0, fmt.Errorf("read page count: %w", err)
	}
	if err := s.conn().QueryRow("PRAGMA page_size").Scan(&size); err != nil {
		return 0, fmt.Errorf("read page size: %w", err)
	}
	return pages * size, nil
}
