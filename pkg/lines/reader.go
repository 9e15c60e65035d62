// Package lines turns input files into candidate words.
//
// A Reader streams one file in bounded memory: it decompresses .gz and
// .zst inputs, detects the text encoding from a leading sample, decodes
// to UTF-8 and yields every line that passes the Rules. Rejected lines
// are only counted. Parquet files yield the values of one string column
// instead of text lines.
package lines

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for Options.
const (
	DefaultSampleBytes  = 1 << 20
	DefaultMaxLineBytes = 64 << 10
)

// Stats describes what a Reader has consumed so far.
type Stats struct {
	// Lines counts every line read, words or not.
	Lines int64
	// NonWords counts lines rejected by the Rules, including lines too
	// long to buffer.
	NonWords int64
	// Encoding is the decoder in use.
	Encoding string
}

// Reader yields the words of one input.
type Reader interface {
	// Next returns the next word. The slice is only valid until the next
	// call. Returns io.EOF when the input is exhausted.
	Next() ([]byte, error)

	// Stats returns the counts so far.
	Stats() Stats

	// BytesRead returns how many raw file bytes have been consumed.
	BytesRead() int64

	// Close releases the file and any decompressor.
	Close() error
}

// Options configures Open.
type Options struct {
	Rules Rules

	// SampleBytes is how much decompressed input encoding detection sees.
	SampleBytes int

	// MaxLineBytes bounds the decoded bytes buffered for one line. Longer
	// lines are skipped and counted as non-words.
	MaxLineBytes int

	// Encoding forces a decoder and skips detection.
	Encoding string

	// ParquetColumn selects the string column of .parquet inputs. Empty
	// picks the first byte-array column.
	ParquetColumn string
}

func (o Options) withDefaults() Options {
	o.Rules = o.Rules.withDefaults()
	if o.SampleBytes <= 0 {
		o.SampleBytes = DefaultSampleBytes
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = DefaultMaxLineBytes
	}
	return o
}

// Open opens path and prepares it for reading. The format follows the
// file extension.
func Open(path string, opts Options) (Reader, error) {
	opts = opts.withDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		r, err := newParquetReader(path, f, opts)
		if err != nil {
			f.Close()
			return nil, err
		}
		return r, nil
	}

	r, err := newTextReader(path, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// countingReader counts bytes read from the underlying reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type textReader struct {
	path     string
	file     *os.File
	counter  *countingReader
	closers  []io.Closer
	sc       *bufio.Scanner
	split    *splitter
	rules    Rules
	encoding string

	lines    int64
	nonWords int64
}

func newTextReader(path string, f *os.File, opts Options) (*textReader, error) {
	counter := &countingReader{r: f}

	raw, closer, err := decompress(path, counter)
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	if closer != nil {
		closers = append(closers, closer)
	}

	br := bufio.NewReaderSize(raw, opts.SampleBytes)
	name := opts.Encoding
	if name == "" {
		sample, err := br.Peek(opts.SampleBytes)
		if err != nil && err != io.EOF {
			closeAll(closers)
			return nil, fmt.Errorf("read sample of %s: %w", path, err)
		}
		name = DetectEncoding(sample)
	}
	if _, ok := lookup(name); !ok {
		name = DefaultEncoding
	}

	split := &splitter{maxLine: opts.MaxLineBytes}
	sc := bufio.NewScanner(Decoder(name).Reader(br))
	sc.Buffer(make([]byte, 0, min(opts.MaxLineBytes, 64<<10)), opts.MaxLineBytes)
	sc.Split(split.split)

	return &textReader{
		path:     path,
		file:     f,
		counter:  counter,
		closers:  closers,
		sc:       sc,
		split:    split,
		rules:    opts.Rules,
		encoding: name,
	}, nil
}

func (r *textReader) Next() ([]byte, error) {
	for r.sc.Scan() {
		r.lines++
		if word, ok := r.rules.Normalize(r.sc.Bytes()); ok {
			return word, nil
		}
		r.nonWords++
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	return nil, io.EOF
}

func (r *textReader) Stats() Stats {
	return Stats{
		Lines:    r.lines + r.split.oversized,
		NonWords: r.nonWords + r.split.oversized,
		Encoding: r.encoding,
	}
}

func (r *textReader) BytesRead() int64 {
	return r.counter.n
}

// Close releases resources.
func (r *textReader) Close() error {
	err := closeAll(r.closers)
	if ferr := r.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// closeAll closes in reverse order and returns the first error.
func closeAll(closers []io.Closer) error {
	var firstErr error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// splitter is a bufio.SplitFunc that ends lines at "\n", "\r\n" or a lone
// "\r". A line that fills maxLine bytes without a terminator is dropped
// up to its terminator and counted in oversized.
type splitter struct {
	maxLine    int
	discarding bool
	pendingCR  bool
	oversized  int64
}

func (s *splitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if len(data) == 0 {
		if s.discarding {
			s.discarding = false
			s.oversized++
		}
		return 0, nil, nil
	}

	// "\r" ended the previous line; a "\n" right after it belongs to it.
	if s.pendingCR {
		s.pendingCR = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' {
			switch {
			case i+1 < len(data) && data[i+1] == '\n':
				advance++
			case i+1 == len(data):
				s.pendingCR = true
			}
		}
		if s.discarding {
			s.discarding = false
			s.oversized++
			return advance, nil, nil
		}
		return advance, data[:i], nil
	}

	if atEOF {
		if s.discarding {
			s.discarding = false
			s.oversized++
			return len(data), nil, nil
		}
		return len(data), data, nil
	}

	if len(data) >= s.maxLine {
		s.discarding = true
		return len(data), nil, nil
	}
	return 0, nil, nil
}
