package agent

import (
	"strings"
	"unicode"
)

// Agent is an immutable agent definition loaded from configuration.
type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
	Description string   `json:"description"`
	Instruction string   `json:"instruction"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Tools       []string `json:"tools,omitempty"`
}

// DisplayName returns a human-readable name derived from the agent ID:
// hyphens and underscores become spaces, each word is title-cased.
func (a *Agent) DisplayName() string {
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(a.ID)
	words := strings.Fields(replaced)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// AllowsTool reports whether the agent's tool policy permits a tool name.
// An empty policy or a "*" entry allows everything.
func (a *Agent) AllowsTool(name string) bool {
	if len(a.Tools) == 0 {
		return true
	}
	for _, t := range a.Tools {
		if t == "*" || t == name {
			return true
		}
	}
	return false
}

// AuthProfile represents authentication credentials for LLM providers
type AuthProfile struct {
	ID       string `json:"id"`
	Provider string `json:"provider"` // "gemini", "anthropic", "openai"
	APIKey   string `json:"api_key"`
	Priority int    `json:"priority"`
}

// Message represents a message in the conversation
type Message struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	ToolCalls  []ToolCall             `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolDecl is a provider-neutral tool declaration
type ToolDecl struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
