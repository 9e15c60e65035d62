package logging

import (
	"sync"
	"time"

	"github.com/eunmann/wordvault/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// Event names shared by the ingest and export paths.
const (
	EventPhaseCompleted  = "phase_completed"
	EventFileIngested    = "file_ingested"
	EventFileSkipped     = "file_skipped"
	EventBatchCommitted  = "batch_committed"
	EventExportCompleted = "export_completed"
	EventFileCreated     = "file_created"
	EventProgress        = "progress"
)

type field struct {
	key string
	val any
}

// CompletionEvent helps build consistent completion log events.
// Fields are emitted in the order they were added.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  []field
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
	}
}

func (ce *CompletionEvent) add(key string, val any) *CompletionEvent {
	ce.fields = append(ce.fields, field{key, val})
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	return ce.add(key, val)
}

// Int64 adds an int64 field.
func (ce *CompletionEvent) Int64(key string, val int64) *CompletionEvent {
	return ce.add(key, val)
}

// Bool adds a bool field.
func (ce *CompletionEvent) Bool(key string, val bool) *CompletionEvent {
	return ce.add(key, val)
}

// Bytes adds byte count with optional human-readable companion.
func (ce *CompletionEvent) Bytes(key string, bytes int64) *CompletionEvent {
	ce.add(key, bytes)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Bytes(bytes))
	}
	return ce
}

// Count adds count with optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.add(key, n)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Count(n))
	}
	return ce
}

// Progress adds progress fields (done, total, percentage, optional ETA).
func (ce *CompletionEvent) Progress(done, total int64, eta time.Duration) *CompletionEvent {
	ce.add("done", done)
	ce.add("total", total)
	if total > 0 {
		ce.add("progress_pct", float64(done)*100.0/float64(total))
		if IsPrettyMode() {
			ce.add("progress_h", humanfmt.Bytes(done)+"/"+humanfmt.Bytes(total))
		}
	}
	if eta > 0 {
		ce.add("eta_ms", eta.Milliseconds())
		if IsPrettyMode() {
			ce.add("eta_h", humanfmt.Duration(eta))
		}
	}
	return ce
}

// Throughput adds throughput fields.
func (ce *CompletionEvent) Throughput(bytes int64) *CompletionEvent {
	if ce.elapsed > 0 {
		ce.add("throughput_bps", float64(bytes)/ce.elapsed.Seconds())
		if IsPrettyMode() {
			ce.add("throughput_h", humanfmt.Throughput(bytes, ce.elapsed))
		}
	}
	return ce
}

// Log emits the completion event.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}
	for _, f := range ce.fields {
		e = e.Interface(f.key, f.val)
	}
	e.Msg(msg)
}

// PhaseComplete logs a phase completion event.
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, EventPhaseCompleted, phase, elapsed)
}

// FileIngested logs the end of one input file.
func FileIngested(log zerolog.Logger, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, EventFileIngested, "ingest", elapsed)
}

// BatchCommitted logs a store transaction checkpoint.
func BatchCommitted(log zerolog.Logger, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, EventBatchCommitted, "ingest", elapsed)
}

// ExportCompleted logs the end of an export sweep.
func ExportCompleted(log zerolog.Logger, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, EventExportCompleted, "export", elapsed)
}

// FileCreated logs a new output file.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, EventFileCreated, phase, elapsed)
}

// FileSkipped logs an input that was not ingested, with the reason.
func FileSkipped(log zerolog.Logger, path, reason string) {
	log.Info().
		Str("event", EventFileSkipped).
		Str("phase", "ingest").
		Str("file", path).
		Str("reason", reason).
		Msg("file skipped")
}

// DefaultProgressInterval is the minimum time between two progress events
// for the same input.
const DefaultProgressInterval = 2 * time.Second

// ByteProgress turns (processed, total) byte reports into throttled
// progress events with a throughput-based ETA. Call StartFile before the
// first report of each input. It is safe for concurrent use.
type ByteProgress struct {
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	file      string
	start     time.Time
	lastEmit  time.Time
	processed int64
	total     int64
	emitted   int
}

// NewByteProgress creates a progress sink that logs at most once per
// interval. A non-positive interval uses DefaultProgressInterval.
func NewByteProgress(log zerolog.Logger, interval time.Duration) *ByteProgress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ByteProgress{log: log, interval: interval, now: time.Now}
}

// StartFile resets the tracker for a new input.
func (p *ByteProgress) StartFile(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.file = path
	p.start = p.now()
	p.lastEmit = p.start
	p.processed = 0
	p.total = 0
}

// Progress records a report. The final report of a file (processed equal
// to total) is always logged.
func (p *ByteProgress) Progress(processed, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed, p.total = processed, total
	now := p.now()
	final := total > 0 && processed >= total
	if !final && now.Sub(p.lastEmit) < p.interval {
		return
	}
	p.lastEmit = now
	p.emitted++

	elapsed := now.Sub(p.start)
	NewCompletionEvent(p.log, EventProgress, "ingest", elapsed).
		Str("file", p.file).
		Progress(processed, total, p.etaLocked(elapsed)).
		Throughput(processed).
		LogDebug("ingest progress")
}

// ETA estimates the time left for the current file from its average
// throughput so far. Zero when nothing is known yet.
func (p *ByteProgress) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etaLocked(p.now().Sub(p.start))
}

func (p *ByteProgress) etaLocked(elapsed time.Duration) time.Duration {
	if p.processed <= 0 || p.total <= p.processed || elapsed <= 0 {
		return 0
	}
	perByte := float64(elapsed) / float64(p.processed)
	return time.Duration(perByte * float64(p.total-p.processed))
}

// Emitted returns how many progress events were logged.
func (p *ByteProgress) Emitted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emitted
}
