package dedup

import (
	"errors"
	"fmt"

	"github.com/eunmann/wordvault/pkg/dedupstore"
)

// Kind classifies an ingestion failure.
type Kind int

const (
	// KindConfig is an invalid path or an exhausted store reservation.
	// It is fatal before or during processing.
	KindConfig Kind = iota + 1
	// KindIO is an unreadable input. In a directory or S3 prefix only the
	// affected file is skipped; a single-file input fails.
	KindIO
	// KindStore is a failed store transaction. The run is aborted and the
	// file's marker is not written.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindStore:
		return "store"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrNoInputs is returned by Ingest when called without inputs.
	ErrNoInputs = errors.New("no inputs given")
	// ErrAlreadyIngested fails a single-file input whose content is
	// already in the store.
	ErrAlreadyIngested = errors.New("already ingested")
)

// Error is an ingestion failure tied to an input.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func ioError(path string, err error) error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

func configError(path string, err error) error {
	return &Error{Kind: KindConfig, Path: path, Err: err}
}

// storeError reports a store failure. Hitting the size reservation is a
// configuration problem.
func storeError(path string, err error) error {
	if errors.Is(err, dedupstore.ErrStoreFull) {
		return configError(path, err)
	}
	return &Error{Kind: KindStore, Path: path, Err: err}
}
