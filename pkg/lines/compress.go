package lines

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// decompress wraps r in a decompressor chosen by the extension of path.
// The closer is nil for plain inputs.
func decompress(path string, r io.Reader) (io.Reader, io.Closer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return gzr, gzr, nil
	case ".zst":
		zr, err := zstd.NewReader(r,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		return zr, closerFunc(func() error { zr.Close(); return nil }), nil
	default:
		return r, nil, nil
	}
}
