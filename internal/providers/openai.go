package providers

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/anvil-agent/anvil/internal/engine"
)

// OpenAIProvider implements engine.Provider over the OpenAI chat
// completion API. A non-empty baseURL points it at any OpenAI-compatible
// endpoint (Kimi, Ollama, LM Studio, vLLM).
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req engine.GenerateRequest) (engine.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.History {
		switch m.Role {
		case engine.RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case engine.RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			})
		}
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		var schema map[string]any
		if err := json.Unmarshal([]byte(t.JSONSchema), &schema); err != nil {
			return engine.GenerateResponse{}, fmt.Errorf("invalid schema for action %s: %w", t.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}

	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		creq.Tools = tools
		creq.ToolChoice = "auto"
		if req.ToolChoice != "" {
			creq.ToolChoice = req.ToolChoice
		}
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		creq.Temperature = &temp
	}

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		status, retryAfter := errorMetadata(err)
		return engine.GenerateResponse{}, engine.WrapProviderError(err, status, retryAfter)
	}
	if len(resp.Choices) == 0 {
		return engine.GenerateResponse{}, fmt.Errorf("empty response from provider")
	}

	choice := resp.Choices[0]

	var calls []engine.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = make(map[string]any)
			}
		}
		calls = append(calls, engine.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}

	finish := "stop"
	switch {
	case len(calls) > 0:
		finish = "tool_calls"
	case choice.FinishReason == openai.FinishReasonLength:
		finish = "length"
	case choice.FinishReason == openai.FinishReasonContentFilter:
		finish = "content_filter"
	}

	return engine.GenerateResponse{
		Text:      choice.Message.Content,
		ToolCalls: calls,
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: finish,
	}, nil
}
