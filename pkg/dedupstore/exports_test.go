package dedupstore

import (
	"fmt"
	"testing"
)

func TestPendingExportPages(t *testing.T) {
	s := openTestStore(t)

	var words []string
	for i := range 25 {
		words = append(words, fmt.Sprintf("word%02d", i))
	}
	insertAll(t, s, words...)

	var got []string
	var after []byte
	for {
		keys, err := s.PendingExport(after, 10)
		if err != nil {
			t.Fatalf("PendingExport failed: %v", err)
		}
		if len(keys) == 0 {
			break
		}
		if len(keys) > 10 {
			t.Fatalf("PendingExport returned %d keys, limit 10", len(keys))
		}
		for _, k := range keys {
			got = append(got, string(k))
		}
		after = keys[len(keys)-1]
	}

	if len(got) != len(words) {
		t.Fatalf("paged %d keys, want %d", len(got), len(words))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("key %d = %q, want %q", i, got[i], words[i])
		}
	}
}

func TestCommitExport(t *testing.T) {
	s := openTestStore(t)
	insertAll(t, s, "apple", "banana", "cherry")

	files := map[string]int64{"/out/wordlist1.txt": 13}
	if err := s.CommitExport([][]byte{[]byte("apple"), []byte("banana")}, files); err != nil {
		t.Fatalf("CommitExport failed: %v", err)
	}

	pending, err := s.PendingCount()
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("PendingCount() = %d, want 1", pending)
	}
	total, err := s.LineCount()
	if err != nil {
		t.Fatalf("LineCount failed: %v", err)
	}
	if total != 3 {
		t.Errorf("LineCount() = %d, want 3", total)
	}

	journal, err := s.ExportJournal()
	if err != nil {
		t.Fatalf("ExportJournal failed: %v", err)
	}
	if len(journal) != 1 || journal[0] != (ExportFile{Path: "/out/wordlist1.txt", CommittedSize: 13}) {
		t.Errorf("ExportJournal() = %+v", journal)
	}
}

func TestExportJournalLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.RegisterExportFile("/out/wordlist1.txt"); err != nil {
		t.Fatalf("RegisterExportFile failed: %v", err)
	}
	if err := s.CommitExport(nil, map[string]int64{"/out/wordlist1.txt": 100}); err != nil {
		t.Fatalf("CommitExport failed: %v", err)
	}

	// Registering again resets the committed size.
	if err := s.RegisterExportFile("/out/wordlist1.txt"); err != nil {
		t.Fatalf("RegisterExportFile failed: %v", err)
	}
	journal, err := s.ExportJournal()
	if err != nil {
		t.Fatalf("ExportJournal failed: %v", err)
	}
	if len(journal) != 1 || journal[0].CommittedSize != 0 {
		t.Errorf("ExportJournal() after re-register = %+v, want committed 0", journal)
	}

	if err := s.ForgetExportFile("/out/wordlist1.txt"); err != nil {
		t.Fatalf("ForgetExportFile failed: %v", err)
	}
	journal, err = s.ExportJournal()
	if err != nil {
		t.Fatalf("ExportJournal failed: %v", err)
	}
	if len(journal) != 0 {
		t.Errorf("ExportJournal() after forget = %+v, want empty", journal)
	}
}
