package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anvil-agent/anvil/internal/echo"
	"github.com/anvil-agent/anvil/internal/lifecycle"
)

// checkpointState is the JSON snapshot persisted between iterations.
// Archived payload detail lives only in the in-memory search index and
// is not persisted; a resumed run rebuilds its archive from scratch.
type checkpointState struct {
	SessionID         string                   `json:"session_id"`
	Task              string                   `json:"task"`
	Iteration         int                      `json:"iteration"`
	ConsecutiveErrors int                      `json:"consecutive_errors"`
	Usage             Usage                    `json:"usage"`
	BudgetUsage       map[string]int           `json:"budget_usage"`
	Thoughts          []thought                `json:"thoughts"`
	Records           []*lifecycle.Record      `json:"records"`
	Corrections       []*echo.CorrectionRecord `json:"corrections"`
	SavedAt           time.Time                `json:"saved_at"`
}

func (r *Run) snapshot() ([]byte, error) {
	return json.Marshal(checkpointState{
		SessionID:         r.SessionID,
		Task:              r.Task,
		Iteration:         r.Iteration,
		ConsecutiveErrors: r.consecutiveErrors,
		Usage:             r.totalUsage,
		BudgetUsage:       r.budget.Usage(),
		Thoughts:          r.thoughts,
		Records:           r.tracker.Records(),
		Corrections:       r.detector.Records(),
		SavedAt:           time.Now().UTC(),
	})
}

func (r *Run) restore(data []byte) error {
	var st checkpointState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}
	r.SessionID = st.SessionID
	r.Task = st.Task
	r.Iteration = st.Iteration
	r.consecutiveErrors = st.ConsecutiveErrors
	r.totalUsage = st.Usage
	r.thoughts = st.Thoughts
	r.budget.RestoreUsage(st.BudgetUsage)
	r.tracker.Restore(st.Records)
	r.detector.Restore(st.Corrections)
	return nil
}

// maybeCheckpoint persists the run when the checkpoint interval divides
// the current iteration. Returns nil, nil when checkpointing is off or
// not yet due.
func (rn *Runner) maybeCheckpoint(ctx context.Context, run *Run) (*CheckpointInfo, error) {
	if rn.store == nil || rn.cfg.CheckpointEvery <= 0 {
		return nil, nil
	}
	if run.Iteration%rn.cfg.CheckpointEvery != 0 {
		return nil, nil
	}
	data, err := run.snapshot()
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := rn.store.Save(ctx, run.SessionID, data); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	return &CheckpointInfo{SessionID: run.SessionID, Bytes: len(data)}, nil
}
