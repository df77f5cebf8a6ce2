// Package echo detects repeated failure patterns in the tool call stream
// and produces corrective directives for the next reasoning phase. Left
// unchecked, showing the model the same failing pattern over and over
// causes it to repeat the mistake indefinitely.

package echo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Signature is a normalized key for a failed tool call: tool name plus a
// coarse hash of its input. Only failures are signed; successes never
// generate corrections.
type Signature string

// SignatureFor derives the signature for a failed call. Args are
// canonicalized by sorted key so map ordering does not split signatures.
func SignatureFor(tool string, args map[string]any) Signature {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(tool)
	for _, k := range keys {
		v, _ := json.Marshal(args[k])
		b.WriteString("\x00")
		b.WriteString(k)
		b.WriteString("=")
		b.Write(v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Signature(tool + ":" + hex.EncodeToString(sum[:])[:12])
}

// CorrectionRecord tracks one failure signature.
type CorrectionRecord struct {
	Signature Signature `json:"signature"`
	Tool      string    `json:"tool"`
	Count     int       `json:"count"`
	Message   string    `json:"message"`
	Emitted   bool      `json:"emitted"`
}

// Detector observes tool outcomes and synthesizes corrections once a
// signature recurs past the loop threshold.
type Detector struct {
	threshold int
	records   map[Signature]*CorrectionRecord
	order     []Signature
}

// NewDetector creates a detector. Threshold is the occurrence count at
// which a correction is generated (default 2 when <= 0).
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = 2
	}
	return &Detector{
		threshold: threshold,
		records:   make(map[Signature]*CorrectionRecord),
	}
}

// Observe feeds one tool outcome into the detector. Successful calls are
// ignored. When a failure signature crosses the threshold and no
// correction has been emitted for it yet, a directive is synthesized and
// marked pending.
func (d *Detector) Observe(tool string, args map[string]any, success bool) {
	if success {
		return
	}

	sig := SignatureFor(tool, args)
	rec, ok := d.records[sig]
	if !ok {
		rec = &CorrectionRecord{Signature: sig, Tool: tool}
		d.records[sig] = rec
		d.order = append(d.order, sig)
	}
	rec.Count++

	if rec.Count >= d.threshold && rec.Message == "" {
		rec.Message = fmt.Sprintf(
			"Tool %q has failed %d times with the same input. Do not repeat this call; try a different approach or different arguments.",
			tool, rec.Count)
	}
}

// PendingCorrections formats all unemitted corrections as one block and
// marks them emitted. Each correction surfaces exactly once so the
// corrective text does not itself consume budget every iteration.
// Returns "" when nothing is pending.
func (d *Detector) PendingCorrections() string {
	var lines []string
	for _, sig := range d.order {
		rec := d.records[sig]
		if rec.Message == "" || rec.Emitted {
			continue
		}
		lines = append(lines, "- "+rec.Message)
		rec.Emitted = true
	}
	if len(lines) == 0 {
		return ""
	}
	return "CORRECTIONS (address these before anything else):\n" + strings.Join(lines, "\n")
}

// Records returns all correction records in observation order, for
// checkpointing.
func (d *Detector) Records() []*CorrectionRecord {
	out := make([]*CorrectionRecord, 0, len(d.order))
	for _, sig := range d.order {
		out = append(out, d.records[sig])
	}
	return out
}

// Restore replaces detector state from a checkpoint.
func (d *Detector) Restore(records []*CorrectionRecord) {
	d.records = make(map[Signature]*CorrectionRecord, len(records))
	d.order = d.order[:0]
	for _, rec := range records {
		d.records[rec.Signature] = rec
		d.order = append(d.order, rec.Signature)
	}
}
