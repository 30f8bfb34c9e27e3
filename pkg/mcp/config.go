// Package mcp bridges agents to external MCP (Model Context Protocol)
// servers speaking JSON-RPC 2.0 over stdio.
package mcp

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema validates the mcp_config.json shape before use.
const configSchema = `{
	"type": "object",
	"required": ["mcps"],
	"properties": {
		"mcps": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["command"],
				"properties": {
					"command": {"type": "string", "minLength": 1},
					"args": {"type": "array", "items": {"type": "string"}},
					"env": {"type": "object", "additionalProperties": {"type": "string"}}
				}
			}
		}
	}
}`

// ServerConfig describes how to launch one MCP server
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Config holds the configured MCP servers
type Config struct {
	MCPs map[string]ServerConfig `json:"mcps"`
}

// LoadConfig reads and validates an MCP configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MCP config: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate MCP config: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return nil, fmt.Errorf("invalid MCP config: %s", errs[0])
		}
		return nil, fmt.Errorf("invalid MCP config")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP config: %w", err)
	}

	return &cfg, nil
}

// Server returns the configuration for a named MCP server
func (c *Config) Server(name string) (ServerConfig, bool) {
	sc, ok := c.MCPs[name]
	return sc, ok
}
