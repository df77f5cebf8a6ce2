package engine

import (
	"encoding/json"

	"github.com/anvil-agent/anvil/internal/adapter"
)

// observe folds one action result into run state: the result tracker
// for lifecycle aging and the repeated-failure detector. Returns the
// event payload describing the observation.
func (rn *Runner) observe(run *Run, tc ToolCall, res adapter.Result) *ObservingInfo {
	output := res.Data
	errCode := ""
	recoverable := false
	if !res.Success && res.Err != nil {
		output = res.Err.Error()
		errCode = res.Err.Code
		recoverable = res.Err.Recoverable
	}

	argsJSON, _ := json.Marshal(tc.Args)
	run.tracker.Record(tc.Name, string(argsJSON), output, run.Iteration, res.Success)
	run.detector.Observe(tc.Name, tc.Args, res.Success)

	mutating := false
	if tc.Name != archiveSearchTool {
		mutating = rn.adapter.Catalog().Mutates(tc.Name)
	}

	return &ObservingInfo{
		CallID:      tc.ID,
		Action:      tc.Name,
		Success:     res.Success,
		Mutating:    mutating,
		Output:      output,
		ErrorCode:   errCode,
		Recoverable: recoverable,
	}
}
