package echo

import (
	"strings"
	"testing"
)

func TestSignatureNormalization(t *testing.T) {
	tests := []struct {
		name      string
		toolA     string
		argsA     map[string]any
		toolB     string
		argsB     map[string]any
		wantEqual bool
	}{
		{
			name:      "identical calls",
			toolA:     "read_file", argsA: map[string]any{"path": "a.go"},
			toolB:     "read_file", argsB: map[string]any{"path": "a.go"},
			wantEqual: true,
		},
		{
			name:      "key order does not matter",
			toolA:     "edit", argsA: map[string]any{"path": "a.go", "old": "x"},
			toolB:     "edit", argsB: map[string]any{"old": "x", "path": "a.go"},
			wantEqual: true,
		},
		{
			name:      "different input",
			toolA:     "read_file", argsA: map[string]any{"path": "a.go"},
			toolB:     "read_file", argsB: map[string]any{"path": "b.go"},
			wantEqual: false,
		},
		{
			name:      "different tool",
			toolA:     "read_file", argsA: map[string]any{"path": "a.go"},
			toolB:     "write_file", argsB: map[string]any{"path": "a.go"},
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := SignatureFor(tt.toolA, tt.argsA)
			b := SignatureFor(tt.toolB, tt.argsB)
			if (a == b) != tt.wantEqual {
				t.Errorf("SignatureFor equality = %v, want %v (%q vs %q)", a == b, tt.wantEqual, a, b)
			}
		})
	}
}

func TestThreeIdenticalFailuresEmitOneCorrection(t *testing.T) {
	d := NewDetector(2)
	args := map[string]any{"path": "missing.go"}

	d.Observe("read_file", args, false)
	if got := d.PendingCorrections(); got != "" {
		t.Fatalf("correction emitted below threshold: %q", got)
	}

	d.Observe("read_file", args, false)
	d.Observe("read_file", args, false)

	first := d.PendingCorrections()
	if first == "" {
		t.Fatal("no correction after crossing threshold")
	}
	if strings.Count(first, "read_file") != 1 {
		t.Errorf("expected exactly one correction line, got: %q", first)
	}

	// Emitted exactly once, not every iteration.
	if again := d.PendingCorrections(); again != "" {
		t.Errorf("correction re-emitted: %q", again)
	}
}

func TestSuccessesAreIgnored(t *testing.T) {
	d := NewDetector(2)
	args := map[string]any{"path": "a.go"}

	d.Observe("read_file", args, true)
	d.Observe("read_file", args, true)
	d.Observe("read_file", args, true)

	if got := d.PendingCorrections(); got != "" {
		t.Errorf("successful calls produced a correction: %q", got)
	}
}

func TestDistinctSignaturesTrackedSeparately(t *testing.T) {
	d := NewDetector(2)

	d.Observe("read_file", map[string]any{"path": "a.go"}, false)
	d.Observe("read_file", map[string]any{"path": "b.go"}, false)

	if got := d.PendingCorrections(); got != "" {
		t.Errorf("distinct failures pooled into one signature: %q", got)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	d := NewDetector(2)
	args := map[string]any{"cmd": "go build"}
	d.Observe("run_cmd", args, false)
	d.Observe("run_cmd", args, false)

	records := d.Records()

	restored := NewDetector(2)
	restored.Restore(records)

	got := restored.Records()
	if len(got) != 1 {
		t.Fatalf("restored %d records, want 1", len(got))
	}
	if got[0].Count != 2 || got[0].Message == "" {
		t.Errorf("restored record lost state: %+v", got[0])
	}

	// The restored detector still owes the pending correction.
	if restored.PendingCorrections() == "" {
		t.Error("restored detector dropped the pending correction")
	}
}
