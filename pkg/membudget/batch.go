// Package membudget resolves how much line data the ingest pipeline may
// hold in one uncommitted store transaction.
//
// The size comes from the first source that sets it: CLI flag, the
// WORDVAULT_BATCH_SIZE environment variable, the config file, then
// DefaultBatchBytes. Whatever the source, the result is clamped to
// 1/RAMDivisor of system memory.
package membudget

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/eunmann/wordvault/pkg/sysmem"
)

// DefaultBatchBytes is the accumulated key volume after which the engine
// checkpoints its store transaction.
const DefaultBatchBytes uint64 = 100 * 1000 * 1000

// MinBatchBytes is the smallest accepted batch size.
const MinBatchBytes uint64 = 64 * 1024

// RAMDivisor caps a batch at this fraction of system memory.
const RAMDivisor = 8

// EnvBatchSize names the environment override.
const EnvBatchSize = "WORDVAULT_BATCH_SIZE"

// Source indicates how the batch size was determined.
type Source string

const (
	SourceDefault Source = "default"
	SourceConfig  Source = "config"
	SourceEnv     Source = "env"
	SourceCLI     Source = "cli"
)

// ErrTooSmall is returned for sizes below MinBatchBytes.
var ErrTooSmall = errors.New("batch size below minimum")

// Batch is a resolved batch size.
type Batch struct {
	Bytes  uint64
	Source Source
	// Clamped is set when the requested size exceeded the RAM cap.
	Clamped   bool
	SystemRAM sysmem.Result
}

// Inputs holds the raw, unparsed candidates. Empty strings are unset.
type Inputs struct {
	CLI    string
	Env    string
	Config string
	RAM    sysmem.Result
}

// ResolveBatch reads the environment and system memory and resolves the
// batch size from the given flag and config values.
func ResolveBatch(cli, config string) (Batch, error) {
	return Resolve(Inputs{
		CLI:    cli,
		Env:    os.Getenv(EnvBatchSize),
		Config: config,
		RAM:    sysmem.Total(),
	})
}

// Resolve picks the batch size from in.
func Resolve(in Inputs) (Batch, error) {
	b := Batch{Bytes: DefaultBatchBytes, Source: SourceDefault, SystemRAM: in.RAM}

	for _, c := range []struct {
		raw    string
		source Source
	}{
		{in.CLI, SourceCLI},
		{in.Env, SourceEnv},
		{in.Config, SourceConfig},
	} {
		if strings.TrimSpace(c.raw) == "" {
			continue
		}
		n, err := ParseHumanSize(c.raw)
		if err != nil {
			return Batch{}, fmt.Errorf("batch size from %s: %w", c.source, err)
		}
		if n < MinBatchBytes {
			return Batch{}, fmt.Errorf("batch size from %s: %s: %w (%s)",
				c.source, c.raw, ErrTooSmall, humanize.IBytes(MinBatchBytes))
		}
		b.Bytes, b.Source = n, c.source
		break
	}

	if ceiling := in.RAM.TotalBytes / RAMDivisor; ceiling >= MinBatchBytes && b.Bytes > ceiling {
		b.Bytes = ceiling
		b.Clamped = true
	}
	return b, nil
}

// ParseHumanSize parses a human-readable size string such as "100MB",
// "1GiB" or "512 KiB". Decimal suffixes are powers of 1000, "i" suffixes
// powers of 1024, and a bare number is bytes.
func ParseHumanSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size string")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}
