package providers

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/anvil-agent/anvil/internal/engine"
)

// AnthropicProvider implements engine.Provider over the Anthropic SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider. model is the default used
// when the request does not name one.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (p *AnthropicProvider) Generate(ctx context.Context, req engine.GenerateRequest) (engine.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]anthropic.Message, 0, len(req.History))
	for _, m := range req.History {
		switch m.Role {
		case engine.RoleUser:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		case engine.RoleAssistant:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}

	var tools []anthropic.ToolDefinition
	for _, t := range req.Tools {
		var schema map[string]any
		if err := json.Unmarshal([]byte(t.JSONSchema), &schema); err != nil {
			return engine.GenerateResponse{}, fmt.Errorf("invalid schema for action %s: %w", t.Name, err)
		}
		tools = append(tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	areq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		areq.Temperature = &temp
	}
	if req.SystemPrompt != "" {
		areq.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: req.SystemPrompt}}
	}
	if len(tools) > 0 {
		areq.Tools = tools
	}

	resp, err := p.client.CreateMessages(ctx, areq)
	if err != nil {
		status, retryAfter := errorMetadata(err)
		return engine.GenerateResponse{}, engine.WrapProviderError(err, status, retryAfter)
	}

	var text string
	var calls []engine.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				text += *block.Text
			}
		case "tool_use":
			if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
				continue
			}
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = make(map[string]any)
				}
			}
			calls = append(calls, engine.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}

	finish := "stop"
	switch {
	case len(calls) > 0:
		finish = "tool_calls"
	case resp.StopReason == "max_tokens":
		finish = "length"
	case resp.StopReason == "content_filtered":
		finish = "content_filter"
	}

	return engine.GenerateResponse{
		Text:      text,
		ToolCalls: calls,
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finish,
	}, nil
}
