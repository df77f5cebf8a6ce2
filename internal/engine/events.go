package engine

// EventKind identifies the kind of loop event. The loop produces a
// finite, non-restartable sequence of these; exactly one terminal event
// (complete, failed, timeout, cancelled) ends every run.
type EventKind string

const (
	EventThinking   EventKind = "thinking"
	EventContext    EventKind = "context"
	EventCorrection EventKind = "correction"
	EventActing     EventKind = "acting"
	EventObserving  EventKind = "observing"
	EventCheckpoint EventKind = "checkpoint"
	EventError      EventKind = "error"
	EventComplete   EventKind = "complete"
	EventFailed     EventKind = "failed"
	EventTimeout    EventKind = "timeout"
	EventCancelled  EventKind = "cancelled"
)

// Event is the closed union of loop events. Kind selects which payload
// pointer is non-nil; each payload carries only the fields relevant to
// its kind.
type Event struct {
	Kind      EventKind
	Iteration int

	Thinking   *ThinkingInfo
	Context    *ContextInfo
	Correction *CorrectionInfo
	Acting     *ActingInfo
	Observing  *ObservingInfo
	Checkpoint *CheckpointInfo
	Err        *ErrorInfo
	Complete   *CompleteInfo
	Failed     *FailedInfo
	Timeout    *TimeoutInfo
	Cancelled  *CancelledInfo
}

// Terminal reports whether this event ends the run.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventComplete, EventFailed, EventTimeout, EventCancelled:
		return true
	default:
		return false
	}
}

// ThinkingInfo carries the model's text for the iteration.
type ThinkingInfo struct {
	Text      string
	ToolCalls int
	Usage     Usage
}

// ContextInfo reports the assembled context against its budget.
type ContextInfo struct {
	TokensUsed      int
	TokenCeiling    int
	TokensReclaimed int // freed by tool result eviction this iteration
	Warnings        []string
}

// CorrectionInfo carries corrective text injected into the next THINK.
type CorrectionInfo struct {
	Text string
}

// ActingInfo reports one action dispatch.
type ActingInfo struct {
	CallID string
	Action string
	Args   map[string]any
}

// ObservingInfo reports one action result.
type ObservingInfo struct {
	CallID      string
	Action      string
	Success     bool
	Mutating    bool
	Output      string
	ErrorCode   string
	Recoverable bool
}

// CheckpointInfo reports a persisted checkpoint.
type CheckpointInfo struct {
	SessionID string
	Bytes     int
}

// ErrorInfo is a non-terminal recoverable error: the run is struggling
// but continuing.
type ErrorInfo struct {
	Code        string
	Message     string
	Recoverable bool
}

// CompleteInfo is the single success exit: the model answered without
// requesting actions.
type CompleteInfo struct {
	Summary    string
	Iterations int
	Usage      Usage
}

// FailedInfo ends the run after the error ceiling was exceeded or an
// unrecoverable failure.
type FailedInfo struct {
	Reason string
	Errors int
}

// TimeoutInfo ends the run at the iteration ceiling.
type TimeoutInfo struct {
	Iterations    int
	MaxIterations int
}

// CancelledInfo ends the run on the cooperative cancellation signal.
type CancelledInfo struct {
	Reason string
}
