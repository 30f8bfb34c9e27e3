package config

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Config represents the main agentd configuration
type Config struct {
	// Server holds the agent API server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Docs holds the documentation/proxy server settings
	Docs DocsConfig `json:"docs" mapstructure:"docs"`

	// Agents
	Agents []AgentConfig `json:"agents" mapstructure:"agents"`

	// AI provider credentials
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Tools
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Sessions
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds agent API server configuration
type ServerConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// DocsConfig holds documentation server configuration
type DocsConfig struct {
	Host        string `json:"host" mapstructure:"host"`
	Port        int    `json:"port" mapstructure:"port"`
	UpstreamURL string `json:"upstream_url" mapstructure:"upstream_url"`
	Timeout     int    `json:"timeout" mapstructure:"timeout"` // seconds
}

// AgentConfig represents a single agent definition
type AgentConfig struct {
	ID          string   `json:"id" mapstructure:"id"`
	Name        string   `json:"name" mapstructure:"name"`
	Model       string   `json:"model" mapstructure:"model"`
	Description string   `json:"description" mapstructure:"description"`
	Instruction string   `json:"instruction" mapstructure:"instruction"`
	Temperature float64  `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens" mapstructure:"max_tokens"`
	Tools       []string `json:"tools" mapstructure:"tools"` // allowed tool names, "*" for all
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Profiles []AIProfile `json:"profiles" mapstructure:"profiles"`
}

// AIProfile represents an AI provider credential profile
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // gemini, anthropic, openai, perplexity
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// ToolsConfig holds tool configuration
type ToolsConfig struct {
	MCP        MCPConfig        `json:"mcp" mapstructure:"mcp"`
	Perplexity PerplexityConfig `json:"perplexity" mapstructure:"perplexity"`
}

// MCPConfig holds MCP server bridge settings
type MCPConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	ConfigPath string `json:"config_path" mapstructure:"config_path"`
}

// PerplexityConfig holds Perplexity search tool settings
type PerplexityConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// SessionsConfig holds session store configuration
type SessionsConfig struct {
	Dir           string `json:"dir" mapstructure:"dir"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
	CleanupCron   string `json:"cleanup_cron" mapstructure:"cleanup_cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Docs: DocsConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			UpstreamURL: "http://localhost:8000",
			Timeout:     30,
		},
		Agents: []AgentConfig{
			{
				ID:          "revsup-candidate-qualify",
				Name:        "revsup_candidate_qualify",
				Model:       "gemini-1.5-flash",
				Description: "AI assistant for qualifying revenue support candidates",
				Instruction: "You are a helpful AI assistant for qualifying revenue support candidates.\n" +
					"You can help with:\n" +
					"- Answering questions about candidate qualifications\n" +
					"- Providing information about revenue support roles\n" +
					"- Assisting with candidate assessment\n\n" +
					"Please be professional and helpful in your responses.",
				Temperature: 0.7,
				MaxTokens:   4096,
				Tools:       []string{"*"},
			},
		},
		AI: AIConfig{
			Profiles: []AIProfile{},
		},
		Tools: ToolsConfig{
			MCP:        MCPConfig{Enabled: false},
			Perplexity: PerplexityConfig{Enabled: true},
		},
		Sessions: SessionsConfig{
			RetentionDays: 30,
			CleanupCron:   "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

var validProviders = []string{"gemini", "anthropic", "openai", "perplexity"}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Docs.Port <= 0 || c.Docs.Port > 65535 {
		return fmt.Errorf("invalid docs port: %d", c.Docs.Port)
	}

	u, err := url.Parse(c.Docs.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid docs upstream URL: %q", c.Docs.UpstreamURL)
	}

	for i, profile := range c.AI.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("AI profile %d: ID is required", i)
		}
		if profile.Provider == "" {
			return fmt.Errorf("AI profile %s: provider is required", profile.ID)
		}
		valid := false
		for _, vp := range validProviders {
			if profile.Provider == vp {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("AI profile %s: invalid provider %s (must be: gemini, anthropic, openai, perplexity)", profile.ID, profile.Provider)
		}
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}

	seen := map[string]bool{}
	for i, agent := range c.Agents {
		if agent.ID == "" {
			return fmt.Errorf("agent %d: ID is required", i)
		}
		if seen[agent.ID] {
			return fmt.Errorf("agent %s: duplicate ID", agent.ID)
		}
		seen[agent.ID] = true
		if agent.Model == "" {
			return fmt.Errorf("agent %s: model is required", agent.ID)
		}
	}

	if c.Tools.MCP.Enabled && c.Tools.MCP.ConfigPath == "" {
		return fmt.Errorf("mcp config_path is required when MCP tools are enabled")
	}

	if c.Sessions.RetentionDays < 0 {
		return fmt.Errorf("session retention days cannot be negative")
	}

	return nil
}

// ProfileFor returns the highest-priority profile for a provider, if any.
func (c *Config) ProfileFor(provider string) (AIProfile, bool) {
	var best AIProfile
	found := false
	for _, p := range c.AI.Profiles {
		if p.Provider != provider {
			continue
		}
		if !found || p.Priority < best.Priority {
			best = p
			found = true
		}
	}
	return best, found
}
