package lines

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// ErrNoStringColumn is returned for Parquet files without a usable
// byte-array column.
var ErrNoStringColumn = errors.New("parquet file has no byte-array column")

// parquetReader yields the values of one column, row group by row group.
type parquetReader struct {
	path  string
	file  *os.File
	size  int64
	col   int
	rules Rules

	rowGroups    []parquet.RowGroup
	currentRGIdx int
	currentRows  parquet.Rows
	rowBuf       []parquet.Row
	bufIdx       int
	bufLen       int

	numRows  int64
	rowsRead int64
	lines    int64
	nonWords int64
	scratch  []byte
}

func newParquetReader(path string, f *os.File, opts Options) (*parquetReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", path, err)
	}

	col, err := stringColumn(pf.Schema(), opts.ParquetColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &parquetReader{
		path:         path,
		file:         f,
		size:         info.Size(),
		col:          col,
		rules:        opts.Rules,
		rowGroups:    pf.RowGroups(),
		currentRGIdx: -1,
		rowBuf:       make([]parquet.Row, 1024),
		numRows:      pf.NumRows(),
	}, nil
}

// stringColumn returns the leaf column index of name, or of the first
// byte-array field when name is empty.
func stringColumn(schema *parquet.Schema, name string) (int, error) {
	if name == "" {
		for _, field := range schema.Fields() {
			if field.Leaf() && field.Type().Kind() == parquet.ByteArray {
				name = field.Name()
				break
			}
		}
		if name == "" {
			return 0, ErrNoStringColumn
		}
	}

	leaf, ok := schema.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("parquet column %q not found", name)
	}
	if leaf.Node.Type().Kind() != parquet.ByteArray {
		return 0, fmt.Errorf("parquet column %q: %w", name, ErrNoStringColumn)
	}
	return leaf.ColumnIndex, nil
}

func (r *parquetReader) Next() ([]byte, error) {
	for {
		for r.bufIdx < r.bufLen {
			row := r.rowBuf[r.bufIdx]
			r.bufIdx++
			r.rowsRead++

			value, ok := r.columnValue(row)
			if !ok {
				// Null cells are not lines.
				continue
			}
			r.lines++
			r.scratch = append(r.scratch[:0], bytes.ToValidUTF8(value, []byte("\uFFFD"))...)
			if word, ok := r.rules.Normalize(r.scratch); ok {
				return word, nil
			}
			r.nonWords++
		}

		if r.currentRows != nil {
			n, err := r.currentRows.ReadRows(r.rowBuf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read parquet rows %s: %w", r.path, err)
			}
			r.currentRows.Close()
			r.currentRows = nil
		}

		r.currentRGIdx++
		if r.currentRGIdx >= len(r.rowGroups) {
			return nil, io.EOF
		}
		r.currentRows = r.rowGroups[r.currentRGIdx].Rows()
	}
}

func (r *parquetReader) columnValue(row parquet.Row) ([]byte, bool) {
	for _, val := range row {
		if val.Column() != r.col {
			continue
		}
		if val.IsNull() {
			return nil, false
		}
		return val.ByteArray(), true
	}
	return nil, false
}

func (r *parquetReader) Stats() Stats {
	return Stats{Lines: r.lines, NonWords: r.nonWords, Encoding: DefaultEncoding}
}

// BytesRead approximates progress as the share of rows read.
func (r *parquetReader) BytesRead() int64 {
	if r.numRows <= 0 {
		return r.size
	}
	return int64(float64(r.size) * float64(r.rowsRead) / float64(r.numRows))
}

// Close releases resources.
func (r *parquetReader) Close() error {
	if r.currentRows != nil {
		r.currentRows.Close()
		r.currentRows = nil
	}
	return r.file.Close()
}
