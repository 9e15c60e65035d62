// Package benchutil provides synthetic wordlists for benchmarks and tests.
package benchutil

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
)

// GeneratorConfig configures synthetic wordlist generation.
type GeneratorConfig struct {
	// NumLines is the number of lines to generate.
	NumLines int
	// DuplicateRatio is the share of lines (0.0-1.0) that repeat an
	// earlier line.
	DuplicateRatio float64
	// InvalidRatio is the share of lines that are blank or too long to
	// pass validation.
	InvalidRatio float64
	// MinLen and MaxLen bound the length of generated words.
	MinLen, MaxLen int
	// Seed for reproducible generation. 0 = use BenchmarkSeed.
	Seed int64
}

// DefaultConfig returns a config resembling a leaked password list.
func DefaultConfig(numLines int) GeneratorConfig {
	return GeneratorConfig{
		NumLines:       numLines,
		DuplicateRatio: 0.25,
		InvalidRatio:   0.02,
		MinLen:         4,
		MaxLen:         16,
		Seed:           BenchmarkSeed,
	}
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%"

// Generator produces synthetic wordlist lines.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	seen []string
}

// NewGenerator creates a new data generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.MinLen <= 0 {
		cfg.MinLen = 1
	}
	if cfg.MaxLen < cfg.MinLen {
		cfg.MaxLen = cfg.MinLen
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Line returns the next line, without a terminator.
func (g *Generator) Line() string {
	r := g.rng.Float64()
	switch {
	case r < g.cfg.InvalidRatio:
		if g.rng.Intn(2) == 0 {
			return ""
		}
		return g.word(g.cfg.MaxLen*8, g.cfg.MaxLen*8)
	case r < g.cfg.InvalidRatio+g.cfg.DuplicateRatio && len(g.seen) > 0:
		return g.seen[g.rng.Intn(len(g.seen))]
	}
	w := g.word(g.cfg.MinLen, g.cfg.MaxLen)
	g.seen = append(g.seen, w)
	return w
}

func (g *Generator) word(minLen, maxLen int) string {
	n := minLen + g.rng.Intn(maxLen-minLen+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(b)
}

// Generate returns NumLines lines.
func (g *Generator) Generate() []string {
	out := make([]string, g.cfg.NumLines)
	for i := range out {
		out[i] = g.Line()
	}
	return out
}

// WriteFile writes NumLines newline-terminated lines to path and returns
// the number of bytes written.
func (g *Generator) WriteFile(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var n int64
	for range g.cfg.NumLines {
		m, err := w.WriteString(g.Line() + "\n")
		if err != nil {
			return n, fmt.Errorf("write %s: %w", path, err)
		}
		n += int64(m)
	}
	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("flush %s: %w", path, err)
	}
	return n, f.Close()
}
