package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anvil-agent/anvil/internal/awareness"
	"github.com/anvil-agent/anvil/internal/budget"
	"github.com/anvil-agent/anvil/internal/echo"
	"github.com/anvil-agent/anvil/internal/lifecycle"
)

// thought is one iteration's assistant text, kept so history can be
// rebuilt for every subsequent context assembly.
type thought struct {
	Iteration int    `json:"iteration"`
	Text      string `json:"text"`
}

// Run is the mutable state of one loop execution. It owns the budget
// manager, the tool result tracker, the repeated-failure detector, and
// the awareness cache for the lifetime of the run.
type Run struct {
	SessionID string
	Task      string
	Status    Status
	Iteration int

	consecutiveErrors int
	totalUsage        Usage
	thoughts          []thought

	budget   *budget.Manager
	tracker  *lifecycle.Tracker
	detector *echo.Detector
	cache    *awareness.Cache
}

func newRun(sessionID, task string, cfg Config) (*Run, error) {
	mgr, err := budget.New(cfg.ContextTokens, cfg.Categories)
	if err != nil {
		return nil, err
	}
	archive, err := lifecycle.NewArchive()
	if err != nil {
		return nil, fmt.Errorf("create result archive: %w", err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Run{
		SessionID: sessionID,
		Task:      task,
		Status:    StatusRunning,
		budget:    mgr,
		tracker:   lifecycle.NewTracker(cfg.RecentWindow, cfg.ArchiveWindow, archive),
		detector:  echo.NewDetector(cfg.LoopThreshold),
		cache:     awareness.NewCache(cfg.AwarenessTTL),
	}, nil
}

func (r *Run) recordThought(text string) {
	if text == "" {
		return
	}
	r.thoughts = append(r.thoughts, thought{Iteration: r.Iteration, Text: text})
}

func (r *Run) addUsage(u Usage) {
	r.totalUsage.Prompt += u.Prompt
	r.totalUsage.Completion += u.Completion
	r.totalUsage.Total += u.Total
}

// renderHistory rebuilds the action history of all prior iterations as
// one block. Result detail follows each record's lifecycle stage:
// recent records carry full output, archived records a one-line digest,
// evicted records only a placeholder.
func (r *Run) renderHistory() string {
	texts := make(map[int]string, len(r.thoughts))
	for _, t := range r.thoughts {
		texts[t.Iteration] = t.Text
	}
	byIter := make(map[int][]*lifecycle.Record)
	for _, rec := range r.tracker.Records() {
		byIter[rec.Iteration] = append(byIter[rec.Iteration], rec)
	}

	var b strings.Builder
	for i := 1; i < r.Iteration; i++ {
		text := texts[i]
		recs := byIter[i]
		if text == "" && len(recs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "--- iteration %d ---\n", i)
		if text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
		for _, rec := range recs {
			b.WriteString(renderRecord(rec))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRecord(rec *lifecycle.Record) string {
	status := "ok"
	if !rec.Success {
		status = "failed"
	}
	switch rec.Stage {
	case lifecycle.StageRecent:
		return fmt.Sprintf("[%s %s]\n%s", rec.Tool, status, rec.Output)
	case lifecycle.StageArchived:
		return fmt.Sprintf("[%s %s] %s", rec.Tool, status, digest(rec.Output, 200))
	default:
		return rec.Placeholder()
	}
}

// digest returns the first line of s, truncated to max bytes.
func digest(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
