// Package intake remembers which input files have been fully ingested,
// keyed by a content hash so renamed or copied files are recognized.
package intake

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/eunmann/wordvault/pkg/dedupstore"
	"golang.org/x/crypto/blake2b"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 64 * 1024

// Digest identifies file content.
type Digest struct {
	// Hex is the BLAKE2b-256 digest in lowercase hex.
	Hex string
	// Size is the number of bytes hashed.
	Size int64
}

// HashFile streams path through BLAKE2b-256 in ChunkSize reads.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return Digest{}, fmt.Errorf("init hash: %w", err)
	}
	buf := make([]byte, ChunkSize)
	n, err := io.CopyBuffer(h, onlyReader{f}, buf)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Digest{Hex: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// onlyReader hides WriterTo so CopyBuffer uses the fixed buffer.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

// Tracker records ingested files in the store.
type Tracker struct {
	store *dedupstore.Store
}

// NewTracker returns a tracker over store.
func NewTracker(store *dedupstore.Store) *Tracker {
	return &Tracker{store: store}
}

// AlreadyIngested reports whether a file with this digest was ingested.
func (t *Tracker) AlreadyIngested(d Digest) (bool, error) {
	return t.store.HasMarker(d.Hex)
}

// MarkIngested records d. Call it only after the file's lines are
// committed.
func (t *Tracker) MarkIngested(d Digest) error {
	return t.store.PutMarker(d.Hex, d.Size)
}
