package mcp

import (
	"context"
)

// ServerTool exposes one tool of a configured MCP server to the agent
// tool loop. It satisfies the tools.Tool interface.
type ServerTool struct {
	client      *Client
	server      string
	tool        string
	name        string
	description string
	schema      map[string]interface{}
}

// NewServerTool creates a tool adapter for server/tool. name is the name
// declared to the model; a zero value falls back to the MCP tool name.
func NewServerTool(client *Client, server, tool, name, description string, schema map[string]interface{}) *ServerTool {
	if name == "" {
		name = tool
	}
	if schema == nil {
		schema = map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The query to send to the MCP server",
				},
			},
			"required": []string{"query"},
		}
	}
	return &ServerTool{
		client:      client,
		server:      server,
		tool:        tool,
		name:        name,
		description: description,
		schema:      schema,
	}
}

// Name returns the declared tool name
func (t *ServerTool) Name() string { return t.name }

// Description returns the tool description
func (t *ServerTool) Description() string { return t.description }

// InputSchema returns the parameter schema
func (t *ServerTool) InputSchema() map[string]interface{} { return t.schema }

// Execute forwards the call to the MCP server
func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return t.client.CallTool(ctx, t.server, t.tool, args)
}
