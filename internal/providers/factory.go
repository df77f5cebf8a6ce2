package providers

import (
	"fmt"
	"os"

	"github.com/anvil-agent/anvil/internal/engine"
)

// NewFromEnv builds a provider from environment variables. LLM_PROVIDER
// selects the backend (default "openai"); each backend reads its own
// key, model, and base URL variables. Returns the provider and the
// resolved model name.
func NewFromEnv() (engine.Provider, string, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := envOr("OPENAI_MODEL", "gpt-4o-mini")
		return NewOpenAIProvider(apiKey, model, os.Getenv("OPENAI_BASE_URL")), model, nil

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := envOr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
		return NewAnthropicProvider(apiKey, model), model, nil

	case "kimi":
		apiKey := os.Getenv("KIMI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("KIMI_API_KEY not set")
		}
		model := envOr("KIMI_MODEL", "kimi-k2-250711")
		baseURL := envOr("KIMI_BASE_URL", "https://api.moonshot.cn/v1")
		return NewOpenAIProvider(apiKey, model, baseURL), model, nil

	case "ollama":
		model := envOr("OLLAMA_MODEL", "llama3.1")
		baseURL := envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1")
		// Local servers accept any key.
		return NewOpenAIProvider(envOr("OLLAMA_API_KEY", "ollama"), model, baseURL), model, nil

	case "lmstudio":
		model := envOr("LMSTUDIO_MODEL", "local-model")
		baseURL := envOr("LMSTUDIO_BASE_URL", "http://localhost:1234/v1")
		return NewOpenAIProvider(envOr("LMSTUDIO_API_KEY", "lmstudio"), model, baseURL), model, nil

	default:
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER %q (want openai, anthropic, kimi, ollama, or lmstudio)", provider)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
