package dedupstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a store configuration that cannot be opened.
	ErrInvalidConfig = errors.New("invalid store configuration")
	// ErrStoreFull indicates the store reached its size reservation.
	// It is a configuration problem and is never retried.
	ErrStoreFull = errors.New("store size reservation exceeded")
	// ErrNoBatch indicates a batch operation after the batch was closed.
	ErrNoBatch = errors.New("no batch in progress")
	// ErrBatchInProgress indicates an attempt to open a second batch, or to
	// run a self-contained transaction while a batch is open.
	ErrBatchInProgress = errors.New("batch already in progress")
	// ErrSalvageSkipped is recorded when the failing operation was itself the
	// commit, so there was nothing left to salvage.
	ErrSalvageSkipped = errors.New("salvage skipped: commit itself failed")
)

// WriteError reports a failed batch write together with the outcome of the
// salvage commit that followed it.
type WriteError struct {
	// Op is the batch operation that failed ("insert", "commit").
	Op string
	// Err is the original failure.
	Err error
	// SalvageErr is nil when the buffered writes were committed.
	SalvageErr error
}

// Salvaged reports whether the writes buffered before the failure were committed.
func (e *WriteError) Salvaged() bool {
	return e.SalvageErr == nil
}

func (e *WriteError) Error() string {
	if e.SalvageErr == nil {
		return fmt.Sprintf("batch %s: %v (buffered writes salvaged)", e.Op, e.Err)
	}
	return fmt.Sprintf("batch %s: %v (salvage failed: %v)", e.Op, e.Err, e.SalvageErr)
}

// Unwrap exposes both the original error and the salvage error to errors.Is/As.
func (e *WriteError) Unwrap() []error {
	if e.SalvageErr == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.SalvageErr}
}
