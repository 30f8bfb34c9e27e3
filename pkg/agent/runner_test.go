package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []*LLMResponse
	requests  []LLMRequest
}

func (p *scriptedProvider) Provider() string { return "gemini" }

func (p *scriptedProvider) Call(_ context.Context, req LLMRequest) (*LLMResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

type fakeExecutor struct {
	outputs map[string]string
	calls   []string
}

func (e *fakeExecutor) Declarations(allowed func(string) bool) []ToolDecl {
	decls := []ToolDecl{}
	for name := range e.outputs {
		if allowed(name) {
			decls = append(decls, ToolDecl{Name: name, InputSchema: map[string]interface{}{"type": "object"}})
		}
	}
	return decls
}

func (e *fakeExecutor) Execute(_ context.Context, name string, _ map[string]interface{}) (string, error) {
	e.calls = append(e.calls, name)
	out, ok := e.outputs[name]
	if !ok {
		return "", fmt.Errorf("no such tool")
	}
	return out, nil
}

func (e *fakeExecutor) Has(name string) bool {
	_, ok := e.outputs[name]
	return ok
}

func testAgent() *Agent {
	return &Agent{
		ID:          "revsup-candidate-qualify",
		Name:        "revsup_candidate_qualify",
		Model:       "gemini-1.5-flash",
		Instruction: "You are a helpful AI assistant.",
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

func TestRunnerSimpleAnswer(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*LLMResponse{
			{Content: "Hello there", Usage: &TokenUsage{InputTokens: 10, OutputTokens: 5}},
		},
	}

	r := NewRunner(RunnerConfig{Logger: zerolog.Nop()})
	r.SetProvider("gemini", provider)

	result, err := r.Run(context.Background(), RunParams{
		Agent:  testAgent(),
		Prompt: "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", result.Response)
	assert.Equal(t, 10, result.Usage.InputTokens)
	assert.Equal(t, 5, result.Usage.OutputTokens)

	// user + assistant
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "user", result.Messages[0].Role)
	assert.Equal(t, "assistant", result.Messages[1].Role)

	// Instruction flows through as system prompt
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "You are a helpful AI assistant.", provider.requests[0].SystemPrompt)
}

func TestRunnerToolLoop(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*LLMResponse{
			{
				ToolCalls: []ToolCall{
					{ID: "call-1", Name: "perplexity_web_search", Parameters: map[string]interface{}{"query": "revsup.com"}},
				},
				Usage: &TokenUsage{InputTokens: 20, OutputTokens: 8},
			},
			{Content: "revsup.com offers revenue support.", Usage: &TokenUsage{InputTokens: 30, OutputTokens: 12}},
		},
	}
	executor := &fakeExecutor{outputs: map[string]string{"perplexity_web_search": "search results"}}

	r := NewRunner(RunnerConfig{Tools: executor, Logger: zerolog.Nop()})
	r.SetProvider("gemini", provider)

	result, err := r.Run(context.Background(), RunParams{
		Agent:  testAgent(),
		Prompt: "what does revsup.com offer?",
	})
	require.NoError(t, err)

	assert.Equal(t, "revsup.com offers revenue support.", result.Response)
	assert.Equal(t, []string{"perplexity_web_search"}, executor.calls)
	assert.Equal(t, 50, result.Usage.InputTokens)
	assert.Equal(t, 20, result.Usage.OutputTokens)

	// user, assistant(tool call), tool, assistant(answer)
	require.Len(t, result.Messages, 4)
	assert.Equal(t, "tool", result.Messages[2].Role)
	assert.Equal(t, "search results", result.Messages[2].Content)
	assert.Equal(t, "call-1", result.Messages[2].ToolCallID)

	// Second provider call saw the tool result
	require.Len(t, provider.requests, 2)
	last := provider.requests[1].Messages
	assert.Equal(t, "tool", last[len(last)-1].Role)
}

func TestRunnerToolDenied(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*LLMResponse{
			{ToolCalls: []ToolCall{{ID: "c1", Name: "secret_tool", Parameters: nil}}},
			{Content: "done"},
		},
	}
	executor := &fakeExecutor{outputs: map[string]string{"secret_tool": "nope"}}

	r := NewRunner(RunnerConfig{Tools: executor, Logger: zerolog.Nop()})
	r.SetProvider("gemini", provider)

	a := testAgent()
	a.Tools = []string{"perplexity_web_search"}

	result, err := r.Run(context.Background(), RunParams{Agent: a, Prompt: "hi"})
	require.NoError(t, err)

	// The denial is surfaced to the model as a tool error, not a run failure
	assert.Empty(t, executor.calls)
	assert.Contains(t, result.Messages[2].Content, "not allowed")
}

func TestRunnerIterationLimit(t *testing.T) {
	// Provider that always asks for another tool call
	looping := &loopingProvider{}
	executor := &fakeExecutor{outputs: map[string]string{"echo": "ok"}}

	r := NewRunner(RunnerConfig{Tools: executor, Logger: zerolog.Nop(), MaxToolIterations: 3})
	r.SetProvider("gemini", looping)

	_, err := r.Run(context.Background(), RunParams{Agent: testAgent(), Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool iterations")
}

type loopingProvider struct{}

func (p *loopingProvider) Provider() string { return "gemini" }

func (p *loopingProvider) Call(_ context.Context, _ LLMRequest) (*LLMResponse, error) {
	return &LLMResponse{
		ToolCalls: []ToolCall{{ID: "c", Name: "echo", Parameters: nil}},
	}, nil
}

func TestRunnerValidation(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: zerolog.Nop()})

	_, err := r.Run(context.Background(), RunParams{Prompt: "hi"})
	assert.Error(t, err)

	_, err = r.Run(context.Background(), RunParams{Agent: testAgent()})
	assert.Error(t, err)
}

func TestRunnerNoCredentials(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: zerolog.Nop()})

	_, err := r.Run(context.Background(), RunParams{Agent: testAgent(), Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}
