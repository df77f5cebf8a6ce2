// Package adapter defines the interface between the loop and the
// external stateful domain it acts on. The loop never inspects a
// domain's internals; everything goes through Execute and Awareness.

package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Error codes reported in structured action failures. Transport-level
// problems (timeout, cancelled) are distinguished from failures the
// adapter itself reported.
const (
	CodeTimeout       = "timeout"
	CodeCancelled     = "cancelled"
	CodeInvalidArgs   = "invalid_args"
	CodeUnknownAction = "unknown_action"
	CodeFailed        = "execution_failed"
)

// Call is one action invocation requested by the model.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// Error is a structured action failure.
type Error struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the outcome of one Execute call. Exactly one of Data and
// Err is meaningful depending on Success.
type Result struct {
	Success bool
	Data    string
	Err     *Error
}

// Failure builds a failed Result.
func Failure(code, message string, recoverable bool) Result {
	return Result{Err: &Error{Code: code, Message: message, Recoverable: recoverable}}
}

// AwarenessOptions bounds an awareness fetch.
type AwarenessOptions struct {
	MaxTokens int
}

// AwarenessData is the adapter's view of current domain state.
type AwarenessData struct {
	Summary    string
	Skeleton   []string
	Relevant   []string
	TokensUsed int
}

// Adapter is the narrow interface to an external stateful domain.
// Execute must honor the deadline and cancellation carried by ctx and
// report overruns as structured failures, never as a process abort.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Execute(ctx context.Context, call Call) Result
	Awareness(ctx context.Context, opts AwarenessOptions) (AwarenessData, error)
	Catalog() Catalog
}

// ActionSchema describes one action: its JSON-Schema input contract and
// whether it mutates domain state. Mutation classification is static; it
// is declared here, never inferred from results at runtime.
type ActionSchema struct {
	Name        string
	Description string
	InputSchema string // raw JSON schema
	Mutating    bool
}

// ValidationError reports action arguments that failed schema
// validation.
type ValidationError struct {
	Action string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action %s validation failed: %s", e.Action, strings.Join(e.Errors, "; "))
}

// ValidateArgs validates args against the action's JSON schema.
func (s ActionSchema) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(s.InputSchema)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &ValidationError{Action: s.Name, Errors: msgs}
	}
	return nil
}

// Catalog is the static set of actions an adapter offers.
type Catalog []ActionSchema

// Schema looks up an action by name.
func (c Catalog) Schema(name string) (ActionSchema, bool) {
	for _, s := range c {
		if s.Name == name {
			return s, true
		}
	}
	return ActionSchema{}, false
}

// Mutates reports whether the named action is classified as mutating.
// Unknown actions are treated as mutating: better a spurious awareness
// refresh than reasoning over a stale snapshot.
func (c Catalog) Mutates(name string) bool {
	s, ok := c.Schema(name)
	if !ok {
		return true
	}
	return s.Mutating
}

// Names returns all action names, catalog order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name)
	}
	return names
}
