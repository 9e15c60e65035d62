package dedup

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/intake"
	"github.com/eunmann/wordvault/pkg/lines"
	"github.com/eunmann/wordvault/pkg/logging"
)

// FileResult describes one input file.
type FileResult struct {
	Path string
	// Hash is the BLAKE2b-256 content digest.
	Hash string
	// Skipped is set when the content was ingested by an earlier run.
	Skipped bool

	Lines      int64
	New        int64
	Duplicates int64
	NonWords   int64
	Bytes      int64
	Encoding   string
	Duration   time.Duration

	// Partial is set on a failed file whose earlier checkpoints were
	// committed. New and Duplicates then count only committed inserts.
	Partial bool
}

// IngestFile ingests one local file. A file whose content hash is already
// marked is skipped without being read. The marker is written only after
// every line of the file is committed.
func (e *Engine) IngestFile(ctx context.Context, path string) (FileResult, error) {
	start := e.now()
	ctx = logctx.WithFile(ctx, path)
	log := logctx.FromContext(ctx)
	res := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return res, ioError(path, err)
	}
	if !info.Mode().IsRegular() {
		return res, ioError(path, errors.New("not a regular file"))
	}

	digest, err := intake.HashFile(path)
	if err != nil {
		return res, ioError(path, err)
	}
	res.Hash = digest.Hex
	res.Bytes = digest.Size

	done, err := e.tracker.AlreadyIngested(digest)
	if err != nil {
		return res, storeError(path, err)
	}
	if done {
		res.Skipped = true
		logging.FileSkipped(log, path, "already_ingested")
		return res, nil
	}

	r, err := lines.Open(path, e.opts.Lines)
	if err != nil {
		return res, ioError(path, err)
	}
	defer r.Close()

	err = e.insertAll(ctx, r, digest.Size, &res)
	stats := r.Stats()
	res.Lines = stats.Lines
	res.NonWords = stats.NonWords
	res.Encoding = stats.Encoding
	if err != nil {
		res.Partial = res.New+res.Duplicates > 0
		return res, err
	}

	if err := e.tracker.MarkIngested(digest); err != nil {
		return res, storeError(path, err)
	}

	res.Duration = e.now().Sub(start)
	logging.FileIngested(log, res.Duration).
		Str("encoding", res.Encoding).
		Count("lines", res.Lines).
		Count("new", res.New).
		Count("duplicates", res.Duplicates).
		Count("non_words", res.NonWords).
		Bytes("bytes", res.Bytes).
		Throughput(res.Bytes).
		Log("file ingested")
	return res, nil
}

// insertAll feeds every word of r into one batch, checkpointing whenever
// the batch volume crosses BatchBytes. On failure res.New and
// res.Duplicates are reset to what the store actually kept.
func (e *Engine) insertAll(ctx context.Context, r lines.Reader, size int64, res *FileResult) error {
	log := logctx.FromContext(ctx)

	batch, err := e.store.BeginBatch()
	if err != nil {
		return storeError(res.Path, err)
	}

	var committedNew, committedDup int64
	lost := func() {
		res.New, res.Duplicates = committedNew, committedDup
	}

	e.startFile(res.Path)
	var reported int64
	batchStart := e.now()

	for {
		word, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			batch.Rollback()
			lost()
			return ioError(res.Path, err)
		}

		result, err := batch.InsertIfAbsent(word)
		if err != nil {
			werr := batch.Salvage(err)
			var we *dedupstore.WriteError
			if !errors.As(werr, &we) || !we.Salvaged() {
				lost()
			}
			return storeError(res.Path, werr)
		}
		if result == dedupstore.Inserted {
			res.New++
		} else {
			res.Duplicates++
		}

		if batch.PendingBytes() >= e.opts.BatchBytes {
			keys, volume := batch.PendingKeys(), batch.PendingBytes()
			if err := batch.Checkpoint(); err != nil {
				// A failed begin leaves the commit in place.
				var we *dedupstore.WriteError
				if errors.As(err, &we) {
					lost()
				}
				return storeError(res.Path, err)
			}
			committedNew, committedDup = res.New, res.Duplicates
			logging.BatchCommitted(log, e.now().Sub(batchStart)).
				Count("keys", keys).
				Bytes("volume", volume).
				LogDebug("batch committed")
			e.opts.Memory.LogBatch(volume, e.opts.BatchBytes)
			batchStart = e.now()
		}

		if n := r.BytesRead(); n-reported >= e.opts.ProgressEvery {
			reported = n
			e.progress(min(n, size), size)
		}
	}

	if err := batch.Commit(); err != nil {
		lost()
		return storeError(res.Path, err)
	}
	e.progress(size, size)
	return nil
}
