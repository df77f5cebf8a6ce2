package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is the provider-agnostic message we pass around.
type Message struct {
	Role    MessageRole
	Content string
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// ToolCall represents an action the model requested.
type ToolCall struct {
	ID   string // provider-specific call ID
	Name string
	Args map[string]any
}

// ToolSpec is the JSON schema description the provider expects for
// function calling.
type ToolSpec struct {
	Name        string
	Description string
	JSONSchema  string // raw JSON string
}

// GenerateRequest carries everything for one provider call.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	History      []Message
	Tools        []ToolSpec
	MaxTokens    int
	Temperature  float32
	ToolChoice   string // "" means provider default ("auto")
}

// GenerateResponse is a normalized result of one provider call.
type GenerateResponse struct {
	Text         string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason string // "stop" | "length" | "tool_calls" | "content_filter"
}

// Provider abstracts the LLM SDK (OpenAI, Anthropic, etc.). Generate
// must honor ctx deadlines and be safe to retry with identical inputs.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// CheckpointStore persists opaque run state between iterations. Load
// returns (nil, nil) when no checkpoint exists for the session.
type CheckpointStore interface {
	Save(ctx context.Context, sessionID string, state []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
}

// Status is the loop state machine's state. Running is the only
// non-terminal status; once any other is reached, no further iterations
// execute.
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status ends the run.
func (s Status) Terminal() bool { return s != StatusRunning }

func (s Status) String() string { return string(s) }

// Validate checks the message for a known role.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
}
