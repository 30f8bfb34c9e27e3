package tools

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"
	perplexityModel   = "sonar"

	perplexitySystemPrompt = "You are a helpful assistant that provides accurate, current information about companies, websites, and industry trends."
)

// PerplexityTool searches the web through the Perplexity chat completions
// API, which speaks the OpenAI wire format.
type PerplexityTool struct {
	client openai.Client
}

// NewPerplexityTool creates a Perplexity search tool
func NewPerplexityTool(apiKey string) *PerplexityTool {
	return newPerplexityTool(apiKey, perplexityBaseURL)
}

func newPerplexityTool(apiKey, baseURL string) *PerplexityTool {
	return &PerplexityTool{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
	}
}

// Name returns the tool name
func (t *PerplexityTool) Name() string {
	return "perplexity_web_search"
}

// Description returns the tool description
func (t *PerplexityTool) Description() string {
	return "Search the web using Perplexity AI for current information about companies, websites, trends, or any external information"
}

// InputSchema returns the parameter schema
func (t *PerplexityTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query (e.g., \"revsup.com offerings services\")",
			},
		},
		"required": []string{"query"},
	}
}

// Execute runs the search
func (t *PerplexityTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("no search query provided")
	}

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: perplexityModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(perplexitySystemPrompt),
			openai.UserMessage(query),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(1000),
	})
	if err != nil {
		return "", fmt.Errorf("perplexity request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Perplexity")
	}

	return fmt.Sprintf("Search Results:\n\n%s", resp.Choices[0].Message.Content), nil
}
