package agent

import (
	"context"
	"fmt"
)

// LLMProvider is an interface for LLM API providers
type LLMProvider interface {
	// Call makes an LLM API call
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name
	Provider() string
}

// LLMRequest contains the request parameters for an LLM call
type LLMRequest struct {
	Model        string
	Messages     []Message
	Tools        []ToolDecl
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// LLMResponse contains the response from the LLM
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderFactory creates LLM providers
type ProviderFactory struct{}

// NewProvider creates a new LLM provider based on auth profile
func (f *ProviderFactory) NewProvider(profile AuthProfile) (LLMProvider, error) {
	switch profile.Provider {
	case "gemini":
		return NewGeminiProvider(profile.APIKey), nil
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}

// ProviderForModel returns the provider name responsible for a model
// identifier, following common prefixes.
func ProviderForModel(model string) string {
	switch {
	case hasPrefix(model, "gemini"):
		return "gemini"
	case hasPrefix(model, "claude"):
		return "anthropic"
	case hasPrefix(model, "gpt"), hasPrefix(model, "o1"), hasPrefix(model, "o3"):
		return "openai"
	default:
		return "gemini"
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
