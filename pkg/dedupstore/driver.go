package dedupstore

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Registered database/sql driver names.
const (
	// DriverCGo is github.com/mattn/go-sqlite3.
	DriverCGo = "sqlite3"
	// DriverPure is modernc.org/sqlite, which builds without cgo.
	DriverPure = "sqlite"
)

// classify wraps driver errors that mean the size reservation was hit with
// ErrStoreFull. Other errors are returned unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrStoreFull) {
		return err
	}
	if isFull(err) {
		return fmt.Errorf("%w: %w", ErrStoreFull, err)
	}
	return err
}

func isFull(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.Code == sqlite3.ErrFull
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code()&0xff == sqlitelib.SQLITE_FULL
	}
	return false
}
