package lines

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"golang.org/x/text/encoding/charmap"
)

func writeInput(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// readAll drains r and returns its words.
func readAll(t *testing.T, r Reader) []string {
	t.Helper()
	var words []string
	for {
		w, err := r.Next()
		if errors.Is(err, io.EOF) {
			return words
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		words = append(words, string(w))
	}
}

func openAll(t *testing.T, path string, opts Options) ([]string, Stats) {
	t.Helper()
	r, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	words := readAll(t, r)
	return words, r.Stats()
}

func TestReaderExampleInput(t *testing.T) {
	content := "apple\nbanana\napple\n   \n" + strings.Repeat("x", 33) + "\n"
	path := writeInput(t, "input.txt", []byte(content))

	r, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	words := readAll(t, r)
	if want := []string{"apple", "banana", "apple"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}

	stats := r.Stats()
	if stats.Lines != 5 {
		t.Errorf("Lines = %d, want 5", stats.Lines)
	}
	if stats.NonWords != 2 {
		t.Errorf("NonWords = %d, want 2", stats.NonWords)
	}
	if stats.Encoding != DefaultEncoding {
		t.Errorf("Encoding = %q, want %q", stats.Encoding, DefaultEncoding)
	}
	if got := r.BytesRead(); got != int64(len(content)) {
		t.Errorf("BytesRead() = %d, want %d", got, len(content))
	}
}

func TestReaderLineTerminators(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      []string
		wantLines int64
	}{
		{"lf", "a\nb\n", []string{"a", "b"}, 2},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}, 2},
		{"lone cr", "a\rb\rc", []string{"a", "b", "c"}, 3},
		{"mixed", "a\r\nb\rc\n\r\nd", []string{"a", "b", "c", "d"}, 5},
		{"no trailing newline", "a\nlast", []string{"a", "last"}, 2},
		{"blank lines", "\n\n\nz\n", []string{"z"}, 4},
		{"empty file", "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, "in.txt", []byte(tt.content))
			words, stats := openAll(t, path, Options{})
			if !reflect.DeepEqual(words, tt.want) {
				t.Errorf("words = %q, want %q", words, tt.want)
			}
			if stats.Lines != tt.wantLines {
				t.Errorf("Lines = %d, want %d", stats.Lines, tt.wantLines)
			}
		})
	}
}

func TestReaderCRLFAcrossBufferBoundary(t *testing.T) {
	// With a 16-byte line buffer the "\r" and "\n" of a pair land in
	// different reads.
	var b strings.Builder
	for range 20 {
		b.WriteString("abcdefghijklmno\r\n")
	}
	path := writeInput(t, "in.txt", []byte(b.String()))

	words, stats := openAll(t, path, Options{MaxLineBytes: 16})
	if len(words) != 20 {
		t.Errorf("got %d words, want 20", len(words))
	}
	if stats.NonWords != 0 {
		t.Errorf("NonWords = %d, want 0", stats.NonWords)
	}
}

func TestReaderOversizedLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"middle", "short\n" + strings.Repeat("y", 100) + "\ntail\n", []string{"short", "tail"}},
		{"at eof", "short\n" + strings.Repeat("y", 100), []string{"short"}},
		{"crlf after", strings.Repeat("z", 40) + "\r\nafter\n", []string{"after"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, "in.txt", []byte(tt.content))
			words, stats := openAll(t, path, Options{MaxLineBytes: 16})
			if !reflect.DeepEqual(words, tt.want) {
				t.Errorf("words = %q, want %q", words, tt.want)
			}
			if stats.NonWords != 1 {
				t.Errorf("NonWords = %d, want 1", stats.NonWords)
			}
			if stats.Lines != int64(len(tt.want))+1 {
				t.Errorf("Lines = %d, want %d", stats.Lines, len(tt.want)+1)
			}
		})
	}
}

func TestReaderLatin1(t *testing.T) {
	text := strings.Repeat("café\nnaïve\nélève\n", 200)
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	path := writeInput(t, "latin1.txt", encoded)

	words, stats := openAll(t, path, Options{Encoding: "iso-8859-1"})
	if len(words) != 600 {
		t.Fatalf("got %d words, want 600", len(words))
	}
	if words[0] != "café" || words[1] != "naïve" || words[2] != "élève" {
		t.Errorf("decoded words = %q", words[:3])
	}
	if stats.Encoding != "iso-8859-1" {
		t.Errorf("Encoding = %q, want iso-8859-1", stats.Encoding)
	}
}

func TestReaderInvalidUTF8IsReplaced(t *testing.T) {
	path := writeInput(t, "in.txt", []byte("good\nba\xffd\n"))

	words, stats := openAll(t, path, Options{Encoding: DefaultEncoding})
	if want := []string{"good", "ba\uFFFDd"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}
	if stats.NonWords != 0 {
		t.Errorf("NonWords = %d, want 0", stats.NonWords)
	}
}

func TestReaderUnknownForcedEncoding(t *testing.T) {
	path := writeInput(t, "in.txt", []byte("word\n"))

	words, stats := openAll(t, path, Options{Encoding: "x-unknown"})
	if len(words) != 1 || stats.Encoding != DefaultEncoding {
		t.Errorf("words = %q, encoding = %q", words, stats.Encoding)
	}
}

func TestReaderBOM(t *testing.T) {
	path := writeInput(t, "bom.txt", []byte("\xef\xbb\xbfhello\nworld\n"))

	words, _ := openAll(t, path, Options{})
	if want := []string{"hello", "world"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}
}

func TestReaderSmallSample(t *testing.T) {
	// A sample cut inside a multibyte rune still detects UTF-8.
	path := writeInput(t, "in.txt", []byte("日本語日本語\nword\n"))

	words, stats := openAll(t, path, Options{SampleBytes: 16})
	if len(words) != 2 || stats.Encoding != DefaultEncoding {
		t.Errorf("words = %q, encoding = %q", words, stats.Encoding)
	}
}

func TestReaderGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte("apple\nbanana\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := writeInput(t, "words.txt.gz", buf.Bytes())

	r, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	words := readAll(t, r)
	if want := []string{"apple", "banana"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}
	if got := r.BytesRead(); got != int64(buf.Len()) {
		t.Errorf("BytesRead() = %d, want compressed size %d", got, buf.Len())
	}
}

func TestReaderZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte("cherry\ndate\n"), nil)
	enc.Close()
	path := writeInput(t, "words.zst", compressed)

	words, _ := openAll(t, path, Options{})
	if want := []string{"cherry", "date"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}
}

func TestReaderCorruptGzip(t *testing.T) {
	path := writeInput(t, "bad.gz", []byte("definitely not gzip"))
	if _, err := Open(path, Options{}); err == nil {
		t.Error("Open of corrupt gzip should fail")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open error = %v, want os.ErrNotExist", err)
	}
}

type wordRow struct {
	ID   int64  `parquet:"id"`
	Word string `parquet:"word"`
	Year string `parquet:"year"`
}

func writeParquet(t *testing.T, rows []wordRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.parquet")
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	return path
}

func TestReaderParquet(t *testing.T) {
	path := writeParquet(t, []wordRow{
		{1, "apple", "n1"},
		{2, "banana", "n2"},
		{3, "   ", "n3"},
		{4, strings.Repeat("x", 33), "n4"},
		{5, "ba\xffd", "n5"},
	})

	r, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	words := readAll(t, r)
	if want := []string{"apple", "banana", "ba\uFFFDd"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}
	stats := r.Stats()
	if stats.Lines != 5 || stats.NonWords != 2 {
		t.Errorf("Stats = %+v, want 5 lines, 2 non-words", stats)
	}
	info, _ := os.Stat(path)
	if got := r.BytesRead(); got != info.Size() {
		t.Errorf("BytesRead() = %d at end, want %d", got, info.Size())
	}
}

func TestReaderParquetColumn(t *testing.T) {
	path := writeParquet(t, []wordRow{{1, "apple", "2019"}, {2, "banana", "2020"}})

	words, _ := openAll(t, path, Options{ParquetColumn: "year"})
	if want := []string{"2019", "2020"}; !reflect.DeepEqual(words, want) {
		t.Errorf("words = %q, want %q", words, want)
	}

	if _, err := Open(path, Options{ParquetColumn: "missing"}); err == nil {
		t.Error("Open with missing column should fail")
	}
	if _, err := Open(path, Options{ParquetColumn: "id"}); !errors.Is(err, ErrNoStringColumn) {
		t.Errorf("Open with int column error = %v, want ErrNoStringColumn", err)
	}
}

func TestReaderParquetNoStringColumn(t *testing.T) {
	type numbers struct {
		N int64 `parquet:"n"`
	}
	path := filepath.Join(t.TempDir(), "n.parquet")
	if err := parquet.WriteFile(path, []numbers{{1}, {2}}); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, Options{}); !errors.Is(err, ErrNoStringColumn) {
		t.Errorf("Open error = %v, want ErrNoStringColumn", err)
	}
}
