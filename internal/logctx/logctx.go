// Package logctx carries a zerolog logger through context.Context.
//
// The CLI attaches a run-scoped logger once per invocation; the engine
// narrows it per input file:
//
//	ctx, runID := logctx.WithRunID(ctx)
//	ctx = logctx.WithFile(ctx, path)
//	log := logctx.FromContext(ctx)
//	log.Info().Msg("ingesting")
package logctx

import (
	"context"

	"github.com/eunmann/wordvault/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

type runIDKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. Without one it falls
// back to the process logger from pkg/logging.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithStr returns a new context with a logger that has the specified string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithRunID assigns a fresh run id, adds it to the logger as "run_id"
// and returns it.
func WithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	ctx = WithStr(ctx, "run_id", id)
	return context.WithValue(ctx, runIDKey{}, id), id
}

// RunID returns the id set by WithRunID, or "" when there is none.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// WithFile adds the input path as "file".
func WithFile(ctx context.Context, path string) context.Context {
	return WithStr(ctx, "file", path)
}
