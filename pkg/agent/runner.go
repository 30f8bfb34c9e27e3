package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ToolExecutor resolves tool calls requested by the model.
type ToolExecutor interface {
	// Declarations returns the tool declarations visible to an agent.
	Declarations(allowed func(string) bool) []ToolDecl

	// Execute runs a tool by name and returns its text output.
	Execute(ctx context.Context, name string, args map[string]interface{}) (string, error)

	// Has reports whether a tool is registered.
	Has(name string) bool
}

// RunnerConfig holds runner configuration
type RunnerConfig struct {
	Profiles          []AuthProfile
	Tools             ToolExecutor
	Logger            zerolog.Logger
	MaxToolIterations int
}

// Runner executes a user message against an agent: it selects the provider
// for the agent's model, feeds the instruction as system prompt, and loops
// tool calls through the tool executor until the model answers.
type Runner struct {
	factory           ProviderFactory
	profiles          map[string]AuthProfile
	tools             ToolExecutor
	logger            zerolog.Logger
	maxToolIterations int

	mu        sync.Mutex
	providers map[string]LLMProvider
}

// RunParams contains the input for one run
type RunParams struct {
	Agent   *Agent
	Prompt  string
	History []Message
}

// RunResult contains the output of one run
type RunResult struct {
	// Response is the final text answer
	Response string

	// Messages are the new conversation turns produced by this run,
	// starting with the user message.
	Messages []Message

	// Usage is the accumulated token usage across provider calls
	Usage TokenUsage
}

// NewRunner creates a new runner
func NewRunner(cfg RunnerConfig) *Runner {
	profiles := make(map[string]AuthProfile)
	for _, p := range cfg.Profiles {
		existing, ok := profiles[p.Provider]
		if !ok || p.Priority < existing.Priority {
			profiles[p.Provider] = p
		}
	}

	maxIter := cfg.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 8
	}

	return &Runner{
		profiles:          profiles,
		tools:             cfg.Tools,
		logger:            cfg.Logger,
		maxToolIterations: maxIter,
		providers:         make(map[string]LLMProvider),
	}
}

// SetProvider installs a provider, replacing the factory-built one.
func (r *Runner) SetProvider(name string, p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

func (r *Runner) providerFor(model string) (LLMProvider, error) {
	name := ProviderForModel(model)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}

	profile, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("no credentials configured for provider %s (model %s)", name, model)
	}

	p, err := r.factory.NewProvider(profile)
	if err != nil {
		return nil, err
	}
	r.providers[name] = p
	return p, nil
}

// Run executes one user message against an agent.
func (r *Runner) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	if params.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if params.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	provider, err := r.providerFor(params.Agent.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RunResult{}

	userMsg := Message{Role: "user", Content: params.Prompt}
	result.Messages = append(result.Messages, userMsg)

	messages := append(append([]Message{}, params.History...), userMsg)

	var decls []ToolDecl
	if r.tools != nil {
		decls = r.tools.Declarations(params.Agent.AllowsTool)
	}

	for iteration := 0; ; iteration++ {
		if iteration >= r.maxToolIterations {
			return nil, fmt.Errorf("agent %s exceeded %d tool iterations", params.Agent.ID, r.maxToolIterations)
		}

		resp, err := provider.Call(ctx, LLMRequest{
			Model:        params.Agent.Model,
			Messages:     messages,
			Tools:        decls,
			Temperature:  params.Agent.Temperature,
			MaxTokens:    params.Agent.MaxTokens,
			SystemPrompt: params.Agent.Instruction,
		})
		if err != nil {
			return nil, fmt.Errorf("provider call failed: %w", err)
		}

		if resp.Usage != nil {
			result.Usage.InputTokens += resp.Usage.InputTokens
			result.Usage.OutputTokens += resp.Usage.OutputTokens
		}

		assistantMsg := Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		messages = append(messages, assistantMsg)
		result.Messages = append(result.Messages, assistantMsg)

		if len(resp.ToolCalls) == 0 {
			result.Response = resp.Content
			break
		}

		for _, tc := range resp.ToolCalls {
			output, err := r.executeTool(ctx, params.Agent, tc)
			if err != nil {
				output = fmt.Sprintf("Error: %s", err)
			}

			toolMsg := Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: tc.ID,
			}
			messages = append(messages, toolMsg)
			result.Messages = append(result.Messages, toolMsg)
		}
	}

	r.logger.Info().
		Str("agent", params.Agent.ID).
		Str("model", params.Agent.Model).
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("Agent run completed")

	return result, nil
}

func (r *Runner) executeTool(ctx context.Context, a *Agent, tc ToolCall) (string, error) {
	if r.tools == nil || !r.tools.Has(tc.Name) {
		return "", fmt.Errorf("unknown tool: %s", tc.Name)
	}
	if !a.AllowsTool(tc.Name) {
		return "", fmt.Errorf("tool %s is not allowed for agent %s", tc.Name, a.ID)
	}

	r.logger.Debug().
		Str("agent", a.ID).
		Str("tool", tc.Name).
		Msg("Executing tool")

	return r.tools.Execute(ctx, tc.Name, tc.Parameters)
}
