package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eunmann/wordvault/internal/config"
	"github.com/eunmann/wordvault/pkg/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logging.Init(false, false) })

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-format", "json"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"ingest", "export", "stats"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%s) failed: %v", name, err)
			}
			if sub.Name() != name {
				t.Errorf("Find(%s) = %s", name, sub.Name())
			}
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for flag, def := range map[string]string{
		"debug":      "false",
		"log-format": "auto",
		"config":     "",
		"db":         "",
	} {
		f := cmd.PersistentFlags().Lookup(flag)
		if f == nil {
			t.Errorf("missing --%s", flag)
			continue
		}
		if f.DefValue != def {
			t.Errorf("--%s default = %q, want %q", flag, f.DefValue, def)
		}
	}
}

func TestIngestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "apple\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no inputs", []string{"ingest", "--db", dir, "-o", dir}, "no inputs"},
		{"no store", []string{"ingest", "-f", words, "--no-export"}, "store.dir"},
		{"no output", []string{"ingest", "-f", words, "--db", dir}, "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestIngestExportStats(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "vault")
	writeFile(t, in, "a.txt", "apple\nbanana\napple\n   \n")
	writeFile(t, in, "b.txt", "cherry\nbanana\n")

	summary, err := execute(t, "ingest", "-i", in, "-o", out, "--db", db)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	for _, want := range []string{"New words", "Lines exported", "wordlist1.txt", "All time"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	got, err := os.ReadFile(filepath.Join(out, "wordlist1.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "apple\nbanana\ncherry\n" {
		t.Errorf("wordlist1.txt = %q", got)
	}

	// Re-running on the same inputs skips them and exports nothing.
	if _, err := execute(t, "ingest", "-i", in, "-o", out, "--db", db); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "wordlist2.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("wordlist2.txt should not exist, stat err = %v", err)
	}

	stats, err := execute(t, "stats", "--db", db)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Unique lines", "Recent runs"} {
		if !strings.Contains(stats, want) {
			t.Errorf("stats missing %q:\n%s", want, stats)
		}
	}
}

func TestIngestStoreDefaultsToOutputDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, in, "a.txt", "apple\nbanana\n")

	if _, err := execute(t, "ingest", "-i", in, "-o", out); err != nil {
		t.Fatalf("ingest without --db failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, config.DBFileName)); err != nil {
		t.Errorf("store not created in the output dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "wordlist1.txt")); err != nil {
		t.Errorf("wordlist1.txt missing: %v", err)
	}
}

func TestIngestAlreadyIngestedSingleFile(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "apple\n")
	out := filepath.Join(dir, "out")

	if _, err := execute(t, "ingest", "-f", words, "-o", out); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	_, err := execute(t, "ingest", "-f", words, "-o", out)
	if err == nil {
		t.Fatal("expected re-ingesting the same file to fail")
	}
	if !strings.Contains(err.Error(), "already ingested") {
		t.Errorf("error = %v, want it to mention already ingested", err)
	}
}

func TestIngestNoExportThenExport(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "vault")
	words := writeFile(t, in, "words.txt", "delta\nalpha\n")

	if _, err := execute(t, "ingest", "-f", words, "--db", db, "--no-export"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output dir created by --no-export, stat err = %v", err)
	}

	summary, err := execute(t, "export", "-o", out, "--db", db, "--output-name", "dict")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(summary, "dict1.txt") {
		t.Errorf("summary missing dict1.txt:\n%s", summary)
	}
	got, err := os.ReadFile(filepath.Join(out, "dict1.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "alpha\ndelta\n" {
		t.Errorf("dict1.txt = %q", got)
	}
}

func TestIngestFromConfigFile(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "vault")
	words := writeFile(t, in, "words.txt", "apple\n")

	t.Setenv("WORDVAULT_TEST_DB", db)
	cfgPath := writeFile(t, t.TempDir(), "wordvault.yaml", `
inputs:
  - `+words+`
output:
  dir: `+out+`
  base_name: fromcfg
store:
  dir: ${WORDVAULT_TEST_DB}
`)

	if _, err := execute(t, "ingest", "--config", cfgPath); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "fromcfg1.txt")); err != nil {
		t.Errorf("fromcfg1.txt missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(db, config.DBFileName)); err != nil {
		t.Errorf("store not created from config: %v", err)
	}
}

func TestIngestSingleFileFailureExitsWithError(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.gz", "definitely not gzip")

	_, err := execute(t, "ingest", "-f", bad, "-o", filepath.Join(dir, "out"), "--db", filepath.Join(dir, "vault"))
	if err == nil {
		t.Fatal("expected ingest of a corrupt single file to fail")
	}
}

func TestInvalidLogFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--db", t.TempDir(), "--log-format", "xml"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}
