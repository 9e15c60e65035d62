// Package memdiag logs heap usage while ingesting, so a batch size that is
// too large for the machine shows up before the process is killed.
//
// Enable with WORDVAULT_MEM_DEBUG=1. WORDVAULT_MEM_PPROF=1 additionally
// serves pprof on localhost:6060.
package memdiag

import (
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	// Registers pprof handlers on DefaultServeMux for the pprof HTTP server.
	_ "net/http/pprof"

	"github.com/rs/zerolog"

	"github.com/eunmann/wordvault/pkg/humanfmt"
)

// Environment switches read by DefaultConfig.
const (
	EnvDebug = "WORDVAULT_MEM_DEBUG"
	EnvPprof = "WORDVAULT_MEM_PPROF"
)

// PprofAddr is where the pprof server listens.
const PprofAddr = "localhost:6060"

// Config holds configuration for memory diagnostics.
type Config struct {
	// Enabled controls whether memory diagnostics are active.
	Enabled bool

	// PprofEnabled controls whether pprof server is started.
	PprofEnabled bool

	// LogInterval is the interval for periodic memory logging.
	LogInterval time.Duration
}

// DefaultConfig returns the default configuration, reading from environment.
func DefaultConfig() Config {
	return Config{
		Enabled:      os.Getenv(EnvDebug) == "1",
		PprofEnabled: os.Getenv(EnvPprof) == "1",
		LogInterval:  5 * time.Second,
	}
}

// Stats is the subset of runtime.MemStats worth logging.
type Stats struct {
	HeapAlloc uint64
	HeapSys   uint64
	Sys       uint64
	NumGC     uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc: m.HeapAlloc,
		HeapSys:   m.HeapSys,
		Sys:       m.Sys,
		NumGC:     m.NumGC,
	}
}

// Tracker tracks memory usage over time with periodic logging.
// A disabled Tracker does nothing. The zero value is not usable; use
// NewTracker.
type Tracker struct {
	config  Config
	log     zerolog.Logger
	read    func() Stats
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool

	mu       sync.Mutex
	peakHeap uint64
}

// NewTracker creates a new memory tracker logging to log.
func NewTracker(config Config, log zerolog.Logger) *Tracker {
	return &Tracker{
		config: config,
		log:    log.With().Str("phase", "memdiag").Logger(),
		read:   Read,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Enabled reports whether the tracker logs anything.
func (t *Tracker) Enabled() bool {
	return t != nil && t.config.Enabled
}

// Start begins periodic memory logging if enabled.
func (t *Tracker) Start() {
	if !t.Enabled() || !t.started.CompareAndSwap(false, true) {
		return
	}
	if t.config.LogInterval <= 0 {
		t.config.LogInterval = 5 * time.Second
	}
	t.log.Info().Msg("memory diagnostics enabled")

	if t.config.PprofEnabled {
		go func() {
			t.log.Info().Str("addr", PprofAddr).Msg("starting pprof server")
			if err := http.ListenAndServe(PprofAddr, nil); err != nil {
				t.log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	go t.logLoop()
}

// Stop stops the periodic logging.
func (t *Tracker) Stop() {
	if t == nil || !t.started.Load() {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

func (t *Tracker) sample() (Stats, uint64) {
	stats := t.read()
	t.mu.Lock()
	defer t.mu.Unlock()
	if stats.HeapAlloc > t.peakHeap {
		t.peakHeap = stats.HeapAlloc
	}
	return stats, t.peakHeap
}

// LogNow logs current memory stats immediately.
func (t *Tracker) LogNow(reason string) {
	if !t.Enabled() {
		return
	}
	stats, peak := t.sample()
	t.log.Debug().
		Str("reason", reason).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_sys", humanfmt.Bytes(int64(stats.HeapSys))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", stats.NumGC).
		Msg("memory stats")
}

// LogBatch logs heap usage next to the key volume of the store
// transaction being committed. It warns when the heap is more than twice
// the batch limit, which means the batch size is too large to be the
// dominant memory cost.
func (t *Tracker) LogBatch(pending, limit int64) {
	if !t.Enabled() {
		return
	}
	stats, peak := t.sample()

	var ratio float64
	if limit > 0 {
		ratio = float64(stats.HeapAlloc) / float64(limit)
	}
	t.log.Debug().
		Str("reason", "batch_checkpoint").
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("batch_pending", humanfmt.Bytes(pending)).
		Str("batch_limit", humanfmt.Bytes(limit)).
		Float64("heap_vs_batch_ratio", ratio).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Msg("memory stats with batch")

	if ratio > 2.0 && limit > 100*humanfmt.MiB {
		t.log.Warn().
			Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
			Str("batch_limit", humanfmt.Bytes(limit)).
			Float64("ratio", ratio).
			Msg("heap usage well above the batch size")
	}
}

// PeakHeap returns the peak heap allocation seen.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) logLoop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.LogNow("shutdown")
			return
		case <-ticker.C:
			t.LogNow("periodic")
		}
	}
}
