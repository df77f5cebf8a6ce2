package lifecycle

import (
	"strings"
	"testing"
)

func TestStageForIsPureFunctionOfAge(t *testing.T) {
	// Default thresholds: recent <= 1, archived <= 5, evicted > 5.
	tests := []struct {
		age  int
		want Stage
	}{
		{0, StageRecent},
		{1, StageRecent},
		{2, StageArchived},
		{3, StageArchived},
		{5, StageArchived},
		{6, StageEvicted},
		{100, StageEvicted},
	}

	for _, tt := range tests {
		if got := StageFor(tt.age, 1, 5); got != tt.want {
			t.Errorf("StageFor(%d, 1, 5) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestAgeTransitionsAndEviction(t *testing.T) {
	tr := NewTracker(1, 5, nil)
	r := tr.Record("read_file", `{"path":"main.go"}`, strings.Repeat("output line\n", 50), 1, true)
	tokensBefore := r.Tokens

	if reclaimed := tr.Age(2); reclaimed != 0 {
		t.Errorf("Age(2) reclaimed %d tokens, want 0", reclaimed)
	}
	if r.Stage != StageRecent {
		t.Errorf("stage at age 1 = %v, want recent", r.Stage)
	}

	tr.Age(4)
	if r.Stage != StageArchived {
		t.Errorf("stage at age 3 = %v, want archived", r.Stage)
	}
	if r.Output == "" {
		t.Error("archived record lost its payload")
	}

	reclaimed := tr.Age(7)
	if r.Stage != StageEvicted {
		t.Errorf("stage at age 6 = %v, want evicted", r.Stage)
	}
	if reclaimed <= 0 {
		t.Errorf("eviction reclaimed %d tokens, want > 0", reclaimed)
	}
	if r.Tokens >= tokensBefore {
		t.Errorf("eviction did not reduce tokens: %d -> %d", tokensBefore, r.Tokens)
	}
	// The placeholder keeps tool name and success flag for audit.
	if !strings.Contains(r.Output, "read_file") || !strings.Contains(r.Output, "ok") {
		t.Errorf("placeholder missing tool/status: %q", r.Output)
	}
}

func TestEvictionIsIrreversible(t *testing.T) {
	tr := NewTracker(1, 5, nil)
	r := tr.Record("list_dir", "{}", "a\nb\nc", 1, true)

	tr.Age(10)
	if r.Stage != StageEvicted {
		t.Fatalf("stage = %v, want evicted", r.Stage)
	}

	// Aging with a smaller current iteration must not resurrect detail.
	evictedOutput := r.Output
	tr.Age(10)
	if r.Output != evictedOutput {
		t.Error("repeated aging changed an evicted record")
	}
}

func TestEvictedPayloadIsSearchableInArchive(t *testing.T) {
	archive, err := NewArchive()
	if err != nil {
		t.Fatalf("NewArchive() error: %v", err)
	}
	defer archive.Close()

	tr := NewTracker(1, 5, archive)
	tr.Record("search_text", `{"query":"rebalance"}`, "found rebalance in budget.go line 120", 1, true)
	tr.Record("read_file", `{"path":"notes.txt"}`, "unrelated grocery list contents", 1, true)

	tr.Age(10)

	hits, err := archive.Search("rebalance", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("evicted payload not found in archive")
	}
	if hits[0].Tool != "search_text" {
		t.Errorf("top hit tool = %q, want search_text", hits[0].Tool)
	}
	if !strings.Contains(hits[0].Output, "budget.go") {
		t.Errorf("top hit lost payload detail: %q", hits[0].Output)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	tr := NewTracker(1, 5, nil)
	tr.Record("read_file", "{}", "contents", 1, true)
	tr.Record("write_file", "{}", "", 2, false)
	tr.Age(4)

	records := tr.Records()

	restored := NewTracker(1, 5, nil)
	restored.Restore(records)

	got := restored.Records()
	if len(got) != len(records) {
		t.Fatalf("restored %d records, want %d", len(got), len(records))
	}
	for i := range got {
		if got[i].Stage != records[i].Stage || got[i].Tokens != records[i].Tokens {
			t.Errorf("record %d mismatch after restore: %+v vs %+v", i, got[i], records[i])
		}
	}
}
