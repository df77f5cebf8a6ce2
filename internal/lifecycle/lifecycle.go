// Package lifecycle ages recorded tool results by iteration distance and
// reclassifies them to free context budget. Evicted payloads are indexed
// in an archive so detail stays retrievable on demand.

package lifecycle

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/anvil-agent/anvil/internal/budget"
)

// Stage is the lifecycle stage of a recorded tool result.
type Stage string

const (
	StageRecent   Stage = "recent"
	StageArchived Stage = "archived"
	StageEvicted  Stage = "evicted"
)

// StageFor computes the stage purely from iteration distance. Transitions
// are one-directional: records only move toward eviction.
func StageFor(age, recentWindow, archiveWindow int) Stage {
	switch {
	case age <= recentWindow:
		return StageRecent
	case age <= archiveWindow:
		return StageArchived
	default:
		return StageEvicted
	}
}

// Record is one recorded tool result. After eviction the Output field
// holds only a placeholder; the full payload lives in the archive.
type Record struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Iteration int    `json:"iteration"`
	Success   bool   `json:"success"`
	Stage     Stage  `json:"stage"`
	Tokens    int    `json:"tokens"`
}

// Placeholder is the audit stub that survives eviction.
func (r *Record) Placeholder() string {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	return fmt.Sprintf("[%s: %s, detail evicted]", r.Tool, status)
}

// Tracker owns the full set of tool result records for one run.
type Tracker struct {
	recentWindow  int
	archiveWindow int
	records       []*Record
	archive       *Archive
}

// NewTracker creates a tracker with the given stage thresholds. A nil
// archive disables payload retention on eviction.
func NewTracker(recentWindow, archiveWindow int, archive *Archive) *Tracker {
	return &Tracker{
		recentWindow:  recentWindow,
		archiveWindow: archiveWindow,
		archive:       archive,
	}
}

// Record registers a tool result at the given iteration.
func (t *Tracker) Record(tool, input, output string, iteration int, success bool) *Record {
	r := &Record{
		ID:        uuid.NewString(),
		Tool:      tool,
		Input:     input,
		Output:    output,
		Iteration: iteration,
		Success:   success,
		Stage:     StageRecent,
		Tokens:    budget.Estimate(output),
	}
	t.records = append(t.records, r)
	return r
}

// Age performs one aging pass against the current iteration and returns
// the number of tokens reclaimed by eviction. Runs once at the start of
// THINK so stale detail never leaks into the next prompt.
func (t *Tracker) Age(currentIteration int) int {
	reclaimed := 0
	for _, r := range t.records {
		next := StageFor(currentIteration-r.Iteration, t.recentWindow, t.archiveWindow)
		if next == r.Stage {
			continue
		}
		if next == StageEvicted && r.Stage != StageEvicted {
			reclaimed += t.evict(r)
		}
		r.Stage = next
	}
	return reclaimed
}

// evict moves the payload to the archive and keeps only the placeholder.
func (t *Tracker) evict(r *Record) int {
	if t.archive != nil {
		if err := t.archive.Index(r.ID, r.Tool, r.Input, r.Output, r.Iteration); err != nil {
			log.Printf("WARNING: failed to archive evicted result %s: %v", r.ID, err)
		}
	}

	before := r.Tokens
	r.Output = r.Placeholder()
	r.Input = ""
	r.Tokens = budget.Estimate(r.Output)
	return before - r.Tokens
}

// Records returns all records, oldest first. Callers must treat the
// slice as read-only.
func (t *Tracker) Records() []*Record { return t.records }

// Restore replaces the tracker's records from a checkpoint.
func (t *Tracker) Restore(records []*Record) { t.records = records }

// Archive returns the tracker's archive, which may be nil.
func (t *Tracker) Archive() *Archive { return t.archive }
