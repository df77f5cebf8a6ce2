package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvil-agent/anvil/internal/adapter"
)

const archiveSearchTool = "archive_search"

func archiveSearchSpec() ToolSpec {
	return ToolSpec{
		Name:        archiveSearchTool,
		Description: "Search evicted tool results by keyword. Use this when a placeholder in the history mentions detail you need back.",
		JSONSchema:  `{"type":"object","properties":{"query":{"type":"string","description":"Full-text query over archived outputs"},"limit":{"type":"integer","description":"Maximum hits to return, default 5"}},"required":["query"]}`,
	}
}

// act dispatches one requested action. Built-in actions are served by
// the loop itself; everything else is validated against the adapter's
// schema and executed with a per-call timeout.
func (rn *Runner) act(ctx context.Context, run *Run, tc ToolCall) adapter.Result {
	if tc.Name == archiveSearchTool {
		return rn.searchArchive(run, tc.Args)
	}

	schema, ok := rn.adapter.Catalog().Schema(tc.Name)
	if !ok {
		return adapter.Failure(adapter.CodeUnknownAction, fmt.Sprintf("unknown action %q", tc.Name), true)
	}
	if err := schema.ValidateArgs(tc.Args); err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}

	callCtx, cancel := context.WithTimeout(ctx, rn.cfg.ActionTimeout)
	defer cancel()
	res := rn.adapter.Execute(callCtx, adapter.Call{ID: tc.ID, Name: tc.Name, Args: tc.Args})
	if !res.Success && res.Err == nil {
		// Adapters must pair failure with a structured error; backfill
		// when one misbehaves.
		res.Err = &adapter.Error{Code: adapter.CodeFailed, Message: "action failed without detail", Recoverable: true}
	}
	return res
}

func (rn *Runner) searchArchive(run *Run, args map[string]any) adapter.Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return adapter.Failure(adapter.CodeInvalidArgs, "query is required", true)
	}
	limit := 5
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	hits, err := run.tracker.Archive().Search(query, limit)
	if err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}
	if len(hits) == 0 {
		return adapter.Result{Success: true, Data: "no archived results matched"}
	}

	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "[%s, iteration %d]\n%s\n", h.Tool, h.Iteration, h.Output)
	}
	return adapter.Result{Success: true, Data: strings.TrimRight(b.String(), "\n")}
}
