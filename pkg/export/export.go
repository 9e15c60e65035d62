// Package export writes lines that were never exported before into
// numbered, size-capped text files and marks them exported.
//
// Each page of lines is written and fsynced before a single store
// transaction flips the page to exported and records how many bytes of
// every touched file are now accounted for. Output beyond that recorded
// size can only come from an interrupted sweep; Recover truncates it so
// the affected lines are written again exactly once.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/fileutil"
	"github.com/eunmann/wordvault/pkg/logging"
	"github.com/rs/zerolog"
)

// Defaults for Options.
const (
	DefaultBaseName     = "wordlist"
	DefaultMaxFileBytes = 1 << 30
	DefaultPageSize     = 10_000
)

// Options configures a Writer.
type Options struct {
	// Dir receives the output files.
	Dir string
	// BaseName prefixes the numbered files: <BaseName><n>.txt.
	BaseName string
	// MaxFileBytes caps every output file.
	MaxFileBytes int64
	// PageSize is the number of lines committed per store transaction.
	PageSize int
}

func (o Options) withDefaults() Options {
	if o.BaseName == "" {
		o.BaseName = DefaultBaseName
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}

// Result summarizes one sweep.
type Result struct {
	// Lines is the number of lines exported.
	Lines int64
	// Bytes is the number of bytes written.
	Bytes int64
	// Files lists the output files written, in order.
	Files []string
	// Recovered counts journaled files repaired before the sweep.
	Recovered int
}

// Writer exports pending lines from a store.
type Writer struct {
	store *dedupstore.Store
	opts  Options
}

// New returns a Writer. Options left zero take their defaults.
// A relative Dir is made absolute here so journaled paths stay valid for
// a later run started from another working directory.
func New(store *dedupstore.Store, opts Options) *Writer {
	if abs, err := filepath.Abs(opts.Dir); err == nil && opts.Dir != "" {
		opts.Dir = abs
	}
	return &Writer{store: store, opts: opts.withDefaults()}
}

// outFile is an output file touched by the current sweep.
type outFile struct {
	path      string
	f         *os.File
	bw        *bufio.Writer
	size      int64
	committed int64
}

// Recover repairs output left by an interrupted sweep. Journaled files
// are cut back to their committed size, files with nothing committed are
// removed, and the journal is cleared. It returns how many files changed.
func (w *Writer) Recover(ctx context.Context) (int, error) {
	log := logctx.FromContext(ctx).With().Str("phase", "export_recover").Logger()

	journal, err := w.store.ExportJournal()
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, entry := range journal {
		changed, err := repairFile(entry)
		if err != nil {
			return repaired, err
		}
		if changed {
			repaired++
			log.Warn().
				Str("file", entry.Path).
				Int64("committed_size", entry.CommittedSize).
				Msg("repaired output file from interrupted export")
		}
		if err := w.store.ForgetExportFile(entry.Path); err != nil {
			return repaired, err
		}
	}
	return repaired, nil
}

func repairFile(entry dedupstore.ExportFile) (bool, error) {
	if entry.CommittedSize == 0 {
		err := os.Remove(entry.Path)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove uncommitted output %s: %w", entry.Path, err)
	}

	truncated, err := fileutil.TruncateTo(entry.Path, entry.CommittedSize)
	if errors.Is(err, os.ErrNotExist) {
		// Moved away by the user; nothing left to repair.
		return false, nil
	}
	return truncated, err
}

// Export runs Recover and then writes every pending line. Nothing is
// created when no line is pending. Cancellation is honored between
// pages; committed pages stay exported.
func (w *Writer) Export(ctx context.Context) (Result, error) {
	start := time.Now()
	log := logctx.FromContext(ctx).With().Str("phase", "export").Logger()

	var res Result
	recovered, err := w.Recover(ctx)
	res.Recovered = recovered
	if err != nil {
		return res, fmt.Errorf("recover export journal: %w", err)
	}

	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	next, err := fileutil.NextNumber(w.opts.Dir, w.opts.BaseName)
	if err != nil {
		return res, err
	}

	s := &sweep{w: w, next: next, log: log, res: &res}
	defer s.closeCurrent()

	var after []byte
	for {
		if err := ctx.Err(); err != nil {
			if ferr := s.finish(); ferr != nil {
				log.Error().Err(ferr).Msg("close output after cancellation")
			}
			return res, err
		}

		keys, err := w.store.PendingExport(after, w.opts.PageSize)
		if err != nil {
			return res, err
		}
		if len(keys) == 0 {
			break
		}
		if err := s.writePage(keys); err != nil {
			return res, err
		}
		after = keys[len(keys)-1]
	}

	if err := s.finish(); err != nil {
		return res, err
	}

	logging.ExportCompleted(log, time.Since(start)).
		Count("lines", res.Lines).
		Bytes("bytes", res.Bytes).
		Int64("files", int64(len(res.Files))).
		Throughput(res.Bytes).
		Log("export completed")
	return res, nil
}

// sweep holds the state of one Export call.
type sweep struct {
	w       *Writer
	next    int
	log     zerolog.Logger
	res     *Result
	cur     *outFile
	touched []*outFile
	all     []*outFile
}

func (s *sweep) writePage(keys [][]byte) error {
	s.touched = s.touched[:0]
	if s.cur != nil {
		s.touched = append(s.touched, s.cur)
	}

	var written int64
	for _, key := range keys {
		lineLen := int64(len(key)) + 1
		if s.cur != nil && s.cur.size > 0 && s.cur.size+lineLen > s.w.opts.MaxFileBytes {
			if err := s.closeCurrent(); err != nil {
				return s.abort(err)
			}
		}
		if s.cur == nil {
			if err := s.openNext(); err != nil {
				return s.abort(err)
			}
		}
		if _, err := s.cur.bw.Write(key); err != nil {
			return s.abort(fmt.Errorf("write %s: %w", s.cur.path, err))
		}
		if err := s.cur.bw.WriteByte('\n'); err != nil {
			return s.abort(fmt.Errorf("write %s: %w", s.cur.path, err))
		}
		s.cur.size += lineLen
		written += lineLen
	}

	if s.cur != nil {
		if err := s.cur.bw.Flush(); err != nil {
			return s.abort(fmt.Errorf("flush %s: %w", s.cur.path, err))
		}
		if err := s.cur.f.Sync(); err != nil {
			return s.abort(fmt.Errorf("sync %s: %w", s.cur.path, err))
		}
	}

	sizes := make(map[string]int64, len(s.touched))
	for _, of := range s.touched {
		sizes[of.path] = of.size
	}
	if err := s.w.store.CommitExport(keys, sizes); err != nil {
		return s.abort(err)
	}
	for _, of := range s.touched {
		of.committed = of.size
	}

	s.res.Lines += int64(len(keys))
	s.res.Bytes += written
	return nil
}

func (s *sweep) openNext() error {
	path := filepath.Join(s.w.opts.Dir, fileutil.NumberedName(s.w.opts.BaseName, s.next))
	s.next++

	// Journal first so a crash right after creation is repaired.
	if err := s.w.store.RegisterExportFile(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := fileutil.SyncDir(s.w.opts.Dir); err != nil {
		f.Close()
		return fmt.Errorf("sync output dir: %w", err)
	}

	of := &outFile{path: path, f: f, bw: bufio.NewWriterSize(f, 1<<20)}
	s.cur = of
	s.touched = append(s.touched, of)
	s.all = append(s.all, of)
	s.res.Files = append(s.res.Files, path)

	logging.FileCreated(s.log, "export", 0).Str("file", path).LogDebug("output file created")
	return nil
}

// closeCurrent flushes, syncs and closes the open file, if any.
func (s *sweep) closeCurrent() error {
	of := s.cur
	if of == nil {
		return nil
	}
	s.cur = nil

	err := of.bw.Flush()
	if serr := of.f.Sync(); err == nil {
		err = serr
	}
	if cerr := of.f.Close(); err == nil {
		err = cerr
	}
	of.f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", of.path, err)
	}
	return nil
}

// abort undoes the uncommitted part of the current page and returns
// cause. Files are cut back to their committed size; files with nothing
// committed are removed and forgotten.
func (s *sweep) abort(cause error) error {
	if s.cur != nil {
		s.cur.bw.Reset(s.cur.f)
		s.cur.f.Close()
		s.cur.f = nil
		s.cur = nil
	}

	var errs []error
	for _, of := range s.touched {
		entry := dedupstore.ExportFile{Path: of.path, CommittedSize: of.committed}
		if _, err := repairFile(entry); err != nil {
			errs = append(errs, err)
			continue
		}
		if of.committed == 0 {
			if err := s.w.store.ForgetExportFile(of.path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		s.log.Error().Err(errors.Join(errs...)).Msg("undo of failed export page incomplete; next export repairs it")
	}
	return cause
}

// finish closes the last file and clears the journal of this sweep.
func (s *sweep) finish() error {
	if err := s.closeCurrent(); err != nil {
		return err
	}
	for _, of := range s.all {
		if err := s.w.store.ForgetExportFile(of.path); err != nil {
			return err
		}
	}
	return nil
}
