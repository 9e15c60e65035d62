// Package fileutil provides the file helpers shared by ingestion and
// export: input listing, numbered output names, durable writes and
// staging cleanup.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/eunmann/wordvault/pkg/logging"
)

// RegularFiles lists the regular files directly inside dir, sorted by
// name. Subdirectories are not descended into.
func RegularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// NumberedName returns "<base><n>.txt".
func NumberedName(base string, n int) string {
	return base + strconv.Itoa(n) + ".txt"
}

// NextNumber returns one past the highest n among files in dir named
// "<base><n>.txt", or 1 when there are none. A missing dir counts as empty.
func NextNumber(dir, base string) (int, error) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `(\d+)\.txt$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	highest := 0
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// Too many digits for an int; it cannot be the highest usable suffix.
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// TruncateTo shrinks path to size bytes and syncs it. Files already at or
// below size are left alone.
func TruncateTo(path string, size int64) (truncated bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.Size() <= size {
		return false, nil
	}
	if err := os.Truncate(path, size); err != nil {
		return false, fmt.Errorf("truncate %s: %w", path, err)
	}
	if err := SyncFile(path); err != nil {
		return true, fmt.Errorf("sync %s: %w", path, err)
	}
	return true, nil
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to the final path.
// The writeFunc receives the temporary path and should write the complete file.
func WriteTmpThenMove(tmpDir, outPath string, writeFunc func(tmpPath string) error) error {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}
	tmpPath := filepath.Join(tmpDir, filepath.Base(outPath)+".tmp")

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := SyncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}

// SyncFile opens, syncs, and closes a file.
func SyncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	err = f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// SyncDir fsyncs a directory so new entries in it survive a crash.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}

// CleanupTmpFiles removes all .tmp files in the given directory recursively.
func CleanupTmpFiles(dir string) error {
	var removed int
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Keep walking past unreadable entries.
			return nil //nolint:nilerr
		}
		if !d.IsDir() && strings.HasSuffix(path, ".tmp") {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})

	if removed > 0 {
		logging.L().Debug().Int("files_removed", removed).Str("dir", dir).Msg("cleaned up tmp files")
	}
	return err
}
