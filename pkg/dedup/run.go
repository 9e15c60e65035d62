package dedup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/eunmann/wordvault/internal/logctx"
	"github.com/eunmann/wordvault/pkg/fileutil"
	"github.com/eunmann/wordvault/pkg/logging"
	"github.com/eunmann/wordvault/pkg/s3fetch"
)

// RunResult summarizes one Ingest call.
type RunResult struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	Files []FileResult
	// Ingested counts files read in full; Skipped counts files already
	// ingested by an earlier run; Failed counts files skipped on I/O
	// errors inside a directory or S3 prefix.
	Ingested int
	Skipped  int
	Failed   int

	Lines      int64
	New        int64
	Duplicates int64
	NonWords   int64
	Bytes      int64

	// Errors holds the I/O errors of the failed files.
	Errors []error
}

// Committed reports whether the run left anything in the store that the
// counters should account for.
func (r *RunResult) Committed() bool {
	return r.Ingested > 0 || r.New > 0 || r.Duplicates > 0
}

func (r *RunResult) add(f FileResult) {
	r.Files = append(r.Files, f)
	if f.Skipped {
		r.Skipped++
		return
	}
	r.Ingested++
	r.Lines += f.Lines
	r.New += f.New
	r.Duplicates += f.Duplicates
	r.NonWords += f.NonWords
	r.Bytes += f.Bytes
}

// addPartial folds in the committed part of a failed file.
func (r *RunResult) addPartial(f FileResult) {
	if !f.Partial {
		return
	}
	r.Lines += f.Lines
	r.New += f.New
	r.Duplicates += f.Duplicates
	r.NonWords += f.NonWords
}

// source is one unit of work resolved from the inputs.
type source struct {
	path string
	obj  *s3fetch.Object
	// tolerant sources come from a directory or prefix; their I/O errors
	// skip the file instead of failing the run.
	tolerant bool
}

func (s source) name() string {
	if s.obj != nil {
		return s.obj.URI()
	}
	return s.path
}

// Ingest ingests every input. An input is a directory (its regular files,
// not recursive, in name order), a single file, or an s3://bucket/prefix.
// All inputs are resolved before any file is read, so an invalid path
// fails the run up front. Cancellation is checked between files.
//
// The partial result is returned with any error.
func (e *Engine) Ingest(ctx context.Context, inputs []string) (RunResult, error) {
	run := RunResult{StartedAt: e.now()}
	if id := logctx.RunID(ctx); id != "" {
		run.ID = id
	} else {
		ctx, run.ID = logctx.WithRunID(ctx)
	}
	log := logctx.FromContext(ctx).With().Str("phase", "ingest").Logger()

	if len(inputs) == 0 {
		return run, configError("", ErrNoInputs)
	}

	sources, err := e.resolve(ctx, inputs)
	if err != nil {
		return run, err
	}
	log.Info().Int("inputs", len(inputs)).Int("files", len(sources)).Msg("ingest started")

	stage, err := e.openStage(ctx, sources)
	if err != nil {
		return run, err
	}
	defer e.closeStage(ctx, stage)

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			run.FinishedAt = e.now()
			return run, err
		}

		res, err := e.ingestSource(ctx, src, stage)
		if err != nil {
			run.addPartial(res)
			if src.tolerant && KindOf(err) == KindIO {
				run.Failed++
				run.Errors = append(run.Errors, err)
				log.Warn().Err(err).Str("file", src.name()).Msg("skipping unreadable file")
				continue
			}
			run.FinishedAt = e.now()
			return run, err
		}
		run.add(res)
		if res.Skipped && !src.tolerant {
			run.FinishedAt = e.now()
			return run, configError(src.name(), ErrAlreadyIngested)
		}
	}

	run.FinishedAt = e.now()
	logging.PhaseComplete(log, "ingest", run.FinishedAt.Sub(run.StartedAt)).
		Int64("files", int64(run.Ingested)).
		Int64("skipped", int64(run.Skipped)).
		Int64("failed", int64(run.Failed)).
		Count("lines", run.Lines).
		Count("new", run.New).
		Count("duplicates", run.Duplicates).
		Count("non_words", run.NonWords).
		Bytes("bytes", run.Bytes).
		Throughput(run.Bytes).
		Log("ingest completed")
	return run, nil
}

// resolve expands inputs into sources.
func (e *Engine) resolve(ctx context.Context, inputs []string) ([]source, error) {
	var sources []source
	for _, in := range inputs {
		if s3fetch.IsS3URI(in) {
			if e.opts.Fetcher == nil {
				return nil, configError(in, errors.New("s3 inputs need an S3 client"))
			}
			if _, _, err := s3fetch.ParseS3URI(in); err != nil {
				return nil, configError(in, err)
			}
			objects, err := e.opts.Fetcher.List(ctx, in)
			if err != nil {
				return nil, ioError(in, err)
			}
			for i := range objects {
				sources = append(sources, source{obj: &objects[i], tolerant: true})
			}
			continue
		}

		info, err := os.Stat(in)
		if err != nil {
			return nil, configError(in, err)
		}
		if !info.IsDir() {
			sources = append(sources, source{path: in})
			continue
		}

		files, err := fileutil.RegularFiles(in)
		if err != nil {
			return nil, configError(in, err)
		}
		for _, f := range files {
			sources = append(sources, source{path: f, tolerant: true})
		}
	}
	return sources, nil
}

// stageDirPattern names the per-run directories S3 objects are staged in.
const stageDirPattern = "wordvault-stage-*"

// StaleStageAge is how old a staging directory left by an earlier run must
// be before a new run removes it.
const StaleStageAge = 24 * time.Hour

// openStage creates a private staging directory under StagingDir when
// sources include S3 objects, so staged names never collide with files
// already there. It returns "" when nothing needs staging.
func (e *Engine) openStage(ctx context.Context, sources []source) (string, error) {
	if !slices.ContainsFunc(sources, func(s source) bool { return s.obj != nil }) {
		return "", nil
	}
	if err := os.MkdirAll(e.opts.StagingDir, 0o755); err != nil {
		return "", configError(e.opts.StagingDir, err)
	}
	e.sweepStages(ctx)

	stage, err := os.MkdirTemp(e.opts.StagingDir, stageDirPattern)
	if err != nil {
		return "", configError(e.opts.StagingDir, err)
	}
	return stage, nil
}

func (e *Engine) closeStage(ctx context.Context, stage string) {
	if stage == "" {
		return
	}
	if err := os.RemoveAll(stage); err != nil {
		log := logctx.FromContext(ctx)
		log.Warn().Err(err).Str("dir", stage).Msg("remove staging directory")
	}
}

// sweepStages removes staging directories of runs that died without
// cleaning up, after dropping their partial downloads.
func (e *Engine) sweepStages(ctx context.Context) {
	log := logctx.FromContext(ctx)
	dirs, err := filepath.Glob(filepath.Join(e.opts.StagingDir, stageDirPattern))
	if err != nil {
		return
	}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || e.now().Sub(info.ModTime()) < StaleStageAge {
			continue
		}
		if err := fileutil.CleanupTmpFiles(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("clean stale staging directory")
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("remove stale staging directory")
			continue
		}
		log.Info().Str("dir", dir).Msg("removed stale staging directory")
	}
}

func (e *Engine) ingestSource(ctx context.Context, src source, stage string) (FileResult, error) {
	if src.obj == nil {
		return e.IngestFile(ctx, src.path)
	}

	uri := src.obj.URI()
	local, err := e.opts.Fetcher.Fetch(ctx, *src.obj, stage)
	if err != nil {
		return FileResult{Path: uri}, ioError(uri, err)
	}
	defer func() {
		if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
			log := logctx.FromContext(ctx)
			log.Warn().Err(err).Str("file", local).Msg("remove staged object")
		}
	}()

	res, err := e.IngestFile(ctx, local)
	res.Path = uri
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			de.Path = fmt.Sprintf("%s (staged at %s)", uri, local)
		}
	}
	return res, err
}
