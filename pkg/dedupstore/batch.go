package dedupstore

import (
	"database/sql"
	"fmt"
)

// InsertResult reports the outcome of InsertIfAbsent.
type InsertResult int

const (
	// Inserted means the key was new and is now stored with state New.
	Inserted InsertResult = iota
	// AlreadyPresent means the key existed; its state was left untouched.
	AlreadyPresent
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already_present"
	default:
		return fmt.Sprintf("InsertResult(%d)", int(r))
	}
}

// Batch is a write transaction that groups many inserts into one commit.
// Use Checkpoint to commit and continue in a fresh transaction once the
// batch has grown large enough.
type Batch struct {
	store      *Store
	tx         *sql.Tx
	insertStmt *sql.Stmt

	// pendingBytes is the key volume written since the last commit.
	pendingBytes int64
	// pendingKeys is the number of keys written since the last commit.
	pendingKeys int64
}

// BeginBatch opens a write batch. Only one batch may be open at a time.
func (s *Store) BeginBatch() (*Batch, error) {
	if s.batch != nil {
		return nil, ErrBatchInProgress
	}

	b := &Batch{store: s}
	if err := b.begin(); err != nil {
		return nil, err
	}
	s.batch = b
	return b, nil
}

func (b *Batch) begin() error {
	tx, err := b.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO lines (word, state) VALUES (?, 0) ON CONFLICT(word) DO NOTHING")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert statement: %w", err)
	}

	b.tx = tx
	b.insertStmt = stmt
	b.pendingBytes = 0
	b.pendingKeys = 0
	return nil
}

// InsertIfAbsent stores key with state New unless it already exists.
func (b *Batch) InsertIfAbsent(key []byte) (InsertResult, error) {
	if b.tx == nil {
		return 0, ErrNoBatch
	}

	res, err := b.insertStmt.Exec(key)
	if err != nil {
		return 0, fmt.Errorf("insert line: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert line rows affected: %w", err)
	}

	b.pendingBytes += int64(len(key))
	b.pendingKeys++

	if affected == 0 {
		return AlreadyPresent, nil
	}
	return Inserted, nil
}

// PendingBytes returns the key volume written since the last commit.
func (b *Batch) PendingBytes() int64 {
	return b.pendingBytes
}

// PendingKeys returns the number of keys written since the last commit.
func (b *Batch) PendingKeys() int64 {
	return b.pendingKeys
}

// Checkpoint commits the current transaction and opens a new one.
// On a failed commit the batch is closed and a *WriteError is returned.
func (b *Batch) Checkpoint() error {
	if err := b.Commit(); err != nil {
		return err
	}

	if err := b.begin(); err != nil {
		return err
	}
	b.store.batch = b
	return nil
}

// Commit commits the current transaction and closes the batch.
func (b *Batch) Commit() error {
	if b.tx == nil {
		return ErrNoBatch
	}

	// Statement close errors are ignored; the commit reports what matters.
	_ = b.insertStmt.Close()
	err := b.tx.Commit()
	b.close()
	if err != nil {
		return &WriteError{Op: "commit", Err: classify(err), SalvageErr: ErrSalvageSkipped}
	}
	return nil
}

// Rollback discards the current transaction and closes the batch.
// It is a no-op on a closed batch.
func (b *Batch) Rollback() error {
	if b.tx == nil {
		return nil
	}

	_ = b.insertStmt.Close()
	err := b.tx.Rollback()
	b.close()
	return err
}

// Salvage is called after a failed write. It commits whatever the batch
// buffered before the failure exactly once; if that commit fails the
// transaction is abandoned. The batch is closed either way and the returned
// *WriteError carries both outcomes.
func (b *Batch) Salvage(cause error) error {
	werr := &WriteError{Op: "insert", Err: cause}
	if b.tx == nil {
		werr.SalvageErr = ErrNoBatch
		return werr
	}

	_ = b.insertStmt.Close()
	if err := b.tx.Commit(); err != nil {
		// A failed Commit has already ended the transaction; the rollback
		// only makes sure the driver has released it.
		_ = b.tx.Rollback()
		werr.SalvageErr = classify(err)
	}
	b.close()
	return werr
}

func (b *Batch) close() {
	b.tx = nil
	b.insertStmt = nil
	b.pendingBytes = 0
	b.pendingKeys = 0
	if b.store.batch == b {
		b.store.batch = nil
	}
}
