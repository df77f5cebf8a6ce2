package engine

import (
	"context"
	"fmt"

	"github.com/anvil-agent/anvil/internal/adapter"
	"github.com/anvil-agent/anvil/internal/prompts"
)

// Runner drives the think, act, observe, decide loop for one task at a
// time. A Runner is reusable across runs; each Run call owns its own
// mutable state.
type Runner struct {
	provider     Provider
	adapter      adapter.Adapter
	store        CheckpointStore
	cfg          Config
	systemPrompt string
}

// NewRunner wires a runner. store may be nil to disable checkpointing
// and resumption.
func NewRunner(provider Provider, ad adapter.Adapter, store CheckpointStore, cfg Config) *Runner {
	return &Runner{
		provider:     provider,
		adapter:      ad,
		store:        store,
		cfg:          cfg.withDefaults(),
		systemPrompt: prompts.System(),
	}
}

// Run starts a fresh session for task and returns its event stream. The
// stream carries exactly one terminal event and is closed after it.
// Consumers should drain the channel; a slow consumer backpressures the
// loop once the buffer fills.
func (rn *Runner) Run(ctx context.Context, task string) <-chan Event {
	return rn.RunSession(ctx, "", task)
}

// RunSession runs under a fixed session ID, resuming from that
// session's last checkpoint when the store holds one.
func (rn *Runner) RunSession(ctx context.Context, sessionID, task string) <-chan Event {
	events := make(chan Event, 64)

	go func() {
		defer close(events)

		run, err := newRun(sessionID, task, rn.cfg)
		if err != nil {
			events <- Event{Kind: EventFailed, Failed: &FailedInfo{Reason: err.Error()}}
			return
		}
		defer run.tracker.Archive().Close()

		defer func() {
			if p := recover(); p != nil {
				run.Status = StatusFailed
				events <- Event{
					Kind:      EventFailed,
					Iteration: run.Iteration,
					Failed:    &FailedInfo{Reason: fmt.Sprintf("panic: %v", p), Errors: run.consecutiveErrors},
				}
			}
		}()

		if err := rn.adapter.Connect(ctx); err != nil {
			run.Status = StatusFailed
			events <- Event{Kind: EventFailed, Failed: &FailedInfo{Reason: fmt.Sprintf("adapter connect: %v", err)}}
			return
		}
		defer rn.adapter.Disconnect()

		if rn.store != nil && sessionID != "" {
			if data, err := rn.store.Load(ctx, sessionID); err != nil {
				events <- errorEvent(0, "checkpoint_load_failed", err.Error())
			} else if data != nil {
				if err := run.restore(data); err != nil {
					events <- errorEvent(0, "checkpoint_restore_failed", err.Error())
				}
			}
		}

		rn.loop(ctx, run, events)
	}()

	return events
}

func (rn *Runner) loop(ctx context.Context, run *Run, events chan<- Event) {
	for run.Iteration < rn.cfg.MaxIterations {
		// Cancellation is checked once per iteration, at the top.
		select {
		case <-ctx.Done():
			run.Status = StatusCancelled
			events <- Event{
				Kind:      EventCancelled,
				Iteration: run.Iteration,
				Cancelled: &CancelledInfo{Reason: ctx.Err().Error()},
			}
			return
		default:
		}

		run.Iteration++

		reclaimed := run.tracker.Age(run.Iteration)

		if err := rn.refreshAwareness(ctx, run); err != nil {
			events <- errorEvent(run.Iteration, "awareness_failed", err.Error())
		}

		userMsg, correction, warnings := rn.assembleContext(run, rn.systemPrompt)
		if correction != "" {
			events <- Event{
				Kind:       EventCorrection,
				Iteration:  run.Iteration,
				Correction: &CorrectionInfo{Text: correction},
			}
		}
		events <- Event{
			Kind:      EventContext,
			Iteration: run.Iteration,
			Context: &ContextInfo{
				TokensUsed:      run.budget.TotalUsed(),
				TokenCeiling:    run.budget.Total(),
				TokensReclaimed: reclaimed,
				Warnings:        warnings,
			},
		}

		resp, err := rn.think(ctx, run, rn.systemPrompt, userMsg)
		if err != nil {
			if ctx.Err() != nil {
				run.Status = StatusCancelled
				events <- Event{
					Kind:      EventCancelled,
					Iteration: run.Iteration,
					Cancelled: &CancelledInfo{Reason: ctx.Err().Error()},
				}
				return
			}
			run.consecutiveErrors++
			events <- errorEvent(run.Iteration, "provider_error", err.Error())
			if rn.exceededErrorCeiling(run) {
				rn.fail(run, events, "consecutive provider errors exceeded the ceiling")
				return
			}
			continue
		}

		run.addUsage(resp.Usage)
		run.recordThought(resp.Text)
		events <- Event{
			Kind:      EventThinking,
			Iteration: run.Iteration,
			Thinking:  &ThinkingInfo{Text: resp.Text, ToolCalls: len(resp.ToolCalls), Usage: resp.Usage},
		}

		// The single success exit: the model answered without
		// requesting any actions.
		if len(resp.ToolCalls) == 0 {
			run.Status = StatusComplete
			events <- Event{
				Kind:      EventComplete,
				Iteration: run.Iteration,
				Complete:  &CompleteInfo{Summary: resp.Text, Iterations: run.Iteration, Usage: run.totalUsage},
			}
			return
		}

		anySuccess := false
		anyMutating := false
		for _, tc := range resp.ToolCalls {
			events <- Event{
				Kind:      EventActing,
				Iteration: run.Iteration,
				Acting:    &ActingInfo{CallID: tc.ID, Action: tc.Name, Args: tc.Args},
			}
			res := rn.act(ctx, run, tc)
			if res.Success {
				anySuccess = true
			}
			info := rn.observe(run, tc, res)
			if info.Mutating {
				anyMutating = true
			}
			events <- Event{
				Kind:      EventObserving,
				Iteration: run.Iteration,
				Observing: info,
			}
		}

		// Any mutating call makes the cached domain snapshot stale; the
		// next iteration's THINK must refetch. Read-only iterations
		// still advance the domain-state version.
		if anyMutating {
			run.cache.Invalidate()
		} else {
			run.cache.Bump()
		}

		run.recordOutcome(anySuccess)

		if rn.exceededErrorCeiling(run) {
			rn.fail(run, events, "consecutive action failures exceeded the ceiling")
			return
		}

		if info, err := rn.maybeCheckpoint(ctx, run); err != nil {
			events <- errorEvent(run.Iteration, "checkpoint_failed", err.Error())
		} else if info != nil {
			events <- Event{Kind: EventCheckpoint, Iteration: run.Iteration, Checkpoint: info}
		}
	}

	run.Status = StatusTimeout
	events <- Event{
		Kind:      EventTimeout,
		Iteration: run.Iteration,
		Timeout:   &TimeoutInfo{Iterations: run.Iteration, MaxIterations: rn.cfg.MaxIterations},
	}
}

func (rn *Runner) fail(run *Run, events chan<- Event, reason string) {
	run.Status = StatusFailed
	events <- Event{
		Kind:      EventFailed,
		Iteration: run.Iteration,
		Failed:    &FailedInfo{Reason: reason, Errors: run.consecutiveErrors},
	}
}

func errorEvent(iteration int, code, message string) Event {
	return Event{
		Kind:      EventError,
		Iteration: iteration,
		Err:       &ErrorInfo{Code: code, Message: message, Recoverable: true},
	}
}
