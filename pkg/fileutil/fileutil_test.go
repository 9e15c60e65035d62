package fileutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), "c")

	got, err := RegularFiles(dir)
	if err != nil {
		t.Fatalf("RegularFiles failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegularFiles() = %v, want %v", got, want)
	}

	if _, err := RegularFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("RegularFiles on missing dir should error")
	}
}

func TestNextNumber(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  int
	}{
		{"empty dir", nil, 1},
		{"one file", []string{"wordlist1.txt"}, 2},
		{"gap in numbering", []string{"wordlist1.txt", "wordlist7.txt", "wordlist3.txt"}, 8},
		{"ignores other names", []string{"wordlist.txt", "wordlistA.txt", "other9.txt", "wordlist2.txt.bak", "xwordlist5.txt"}, 1},
		{"leading zeros", []string{"wordlist007.txt"}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, f), "")
			}
			got, err := NextNumber(dir, "wordlist")
			if err != nil {
				t.Fatalf("NextNumber failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextNumber() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextNumberQuotesBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "list.v4.txt"), "")
	writeFile(t, filepath.Join(dir, "listXv9.txt"), "")

	got, err := NextNumber(dir, "list.v")
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
	if got != 5 {
		t.Errorf("NextNumber() = %d, want 5", got)
	}
}

func TestNextNumberMissingDir(t *testing.T) {
	got, err := NextNumber(filepath.Join(t.TempDir(), "missing"), "wordlist")
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
	if got != 1 {
		t.Errorf("NextNumber() = %d, want 1", got)
	}
}

func TestNumberedName(t *testing.T) {
	if got := NumberedName("wordlist", 12); got != "wordlist12.txt" {
		t.Errorf("NumberedName() = %q, want wordlist12.txt", got)
	}
}

func TestTruncateTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	writeFile(t, path, "apple\nbanana\n")

	truncated, err := TruncateTo(path, 6)
	if err != nil {
		t.Fatalf("TruncateTo failed: %v", err)
	}
	if !truncated {
		t.Error("TruncateTo() = false, want true")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "apple\n" {
		t.Errorf("content after truncate = %q, want %q", got, "apple\n")
	}

	truncated, err = TruncateTo(path, 100)
	if err != nil {
		t.Fatalf("TruncateTo failed: %v", err)
	}
	if truncated {
		t.Error("TruncateTo() beyond size = true, want false")
	}
}

func TestWriteTmpThenMove(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "nested", "output.txt")

	content := []byte("test content")
	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, content, 0o644)
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", got, content)
	}
	if exists(filepath.Join(tmpDir, "output.txt.tmp")) {
		t.Error("Tmp file still exists after successful write")
	}
}

func TestWriteTmpThenMoveError(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "output.txt")

	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, []byte("partial"), 0o644); err != nil {
			return err
		}
		return os.ErrPermission
	})
	if err == nil {
		t.Error("WriteTmpThenMove should have failed")
	}
	if exists(filepath.Join(tmpDir, "output.txt.tmp")) {
		t.Error("Tmp file exists after failed write")
	}
	if exists(outPath) {
		t.Error("Output file exists after failed write")
	}
}

func TestCleanupTmpFiles(t *testing.T) {
	tmpDir := t.TempDir()

	tmpFile1 := filepath.Join(tmpDir, "file1.tmp")
	tmpFile2 := filepath.Join(tmpDir, "subdir", "file2.tmp")
	regularFile := filepath.Join(tmpDir, "regular.txt")
	for _, path := range []string{tmpFile1, tmpFile2, regularFile} {
		writeFile(t, path, "content")
	}

	if err := CleanupTmpFiles(tmpDir); err != nil {
		t.Fatalf("CleanupTmpFiles failed: %v", err)
	}

	if exists(tmpFile1) || exists(tmpFile2) {
		t.Error(".tmp files still exist after cleanup")
	}
	if !exists(regularFile) {
		t.Error("regularFile was removed")
	}
}

func TestSyncDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	if err := SyncDir(dir); err != nil {
		t.Errorf("SyncDir failed: %v", err)
	}
	if err := SyncDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("SyncDir on a missing dir succeeded")
	}
}
