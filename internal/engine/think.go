package engine

import (
	"context"
	"strings"
	"time"

	"github.com/anvil-agent/anvil/internal/adapter"
	"github.com/anvil-agent/anvil/internal/awareness"
	"github.com/anvil-agent/anvil/internal/budget"
)

// refreshAwareness fetches a fresh domain snapshot when the cache asks
// for one. The snapshot replaces the old one wholesale.
func (rn *Runner) refreshAwareness(ctx context.Context, run *Run) error {
	if !run.cache.NeedsRefresh() {
		return nil
	}
	data, err := rn.adapter.Awareness(ctx, adapter.AwarenessOptions{
		MaxTokens: run.budget.Allocated(budget.CategoryAwareness),
	})
	if err != nil {
		return err
	}
	run.cache.Update(&awareness.Snapshot{
		Summary:   data.Summary,
		Skeleton:  data.Skeleton,
		Relevant:  data.Relevant,
		Tokens:    data.TokensUsed,
		FetchedAt: time.Now(),
	})
	return nil
}

// assembleContext fills the budget manager for this iteration and
// returns the rendered user message, any correction text injected this
// iteration, and budget warnings.
func (rn *Runner) assembleContext(run *Run, systemPrompt string) (userMsg, correction string, warnings []string) {
	run.budget.Reset()

	add := func(c *budget.Chunk) {
		if err := run.budget.Add(c); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	add(budget.NewFixedChunk(budget.CategorySystem, systemPrompt))

	correction = run.detector.PendingCorrections()
	if correction != "" {
		add(budget.NewFixedChunk(budget.CategoryCorrections, correction))
	}

	if snap := run.cache.Snapshot(); snap != nil {
		add(budget.NewChunk(budget.CategoryAwareness, renderSnapshot(snap)))
	}

	add(budget.NewChunk(budget.CategoryTasks, "TASK:\n"+run.Task))

	if history := run.renderHistory(); history != "" {
		add(budget.NewChunk(budget.CategoryHistory, "HISTORY:\n"+history))
	}

	run.budget.Rebalance()
	warnings = append(warnings, run.budget.Warnings()...)
	return run.budget.RenderExcept(budget.CategorySystem), correction, warnings
}

func renderSnapshot(snap *awareness.Snapshot) string {
	var b strings.Builder
	b.WriteString("DOMAIN STATE:\n")
	b.WriteString(snap.Summary)
	if len(snap.Skeleton) > 0 {
		b.WriteString("\n\nStructure:\n")
		for _, line := range snap.Skeleton {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if len(snap.Relevant) > 0 {
		b.WriteString("\nRelevant:\n")
		for _, line := range snap.Relevant {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// think performs one provider call over the assembled context. The
// provider timeout and retry policy apply here.
func (rn *Runner) think(ctx context.Context, run *Run, systemPrompt, userMsg string) (GenerateResponse, error) {
	req := GenerateRequest{
		Model:        rn.cfg.Model,
		SystemPrompt: systemPrompt,
		History:      []Message{{Role: RoleUser, Content: userMsg}},
		Tools:        rn.toolSpecs(),
		MaxTokens:    rn.cfg.MaxOutputTokens,
		Temperature:  rn.cfg.Temperature,
	}
	callCtx, cancel := context.WithTimeout(ctx, rn.cfg.ProviderTimeout)
	defer cancel()
	return retryGenerate(callCtx, rn.provider, req, rn.cfg.Retry)
}

// toolSpecs exposes the adapter catalog plus the built-in archive
// search to the provider.
func (rn *Runner) toolSpecs() []ToolSpec {
	catalog := rn.adapter.Catalog()
	specs := make([]ToolSpec, 0, len(catalog)+1)
	for _, s := range catalog {
		specs = append(specs, ToolSpec{Name: s.Name, Description: s.Description, JSONSchema: s.InputSchema})
	}
	specs = append(specs, archiveSearchSpec())
	return specs
}
