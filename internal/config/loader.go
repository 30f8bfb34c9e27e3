package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".agentd", "agentd.json")
	}

	// Missing config file is not an error, defaults apply
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		applyDerivedDefaults(cfg)
		applyEnvKeys(cfg)
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("AGENTD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(cfg)
	applyEnvKeys(cfg)

	return cfg, nil
}

// applyDerivedDefaults fills in paths relative to the data directory.
func applyDerivedDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DataDir = filepath.Join(home, ".agentd")
		}
	}
	if cfg.Logging.File == "" && cfg.DataDir != "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "agentd.log")
	}
	if cfg.Sessions.Dir == "" && cfg.DataDir != "" {
		cfg.Sessions.Dir = filepath.Join(cfg.DataDir, "sessions")
	}
	if cfg.Tools.MCP.ConfigPath == "" && cfg.DataDir != "" {
		cfg.Tools.MCP.ConfigPath = filepath.Join(cfg.DataDir, "mcp_config.json")
	}
}

// applyEnvKeys backfills provider profiles from well-known environment
// variables so a bare deployment only needs GOOGLE_API_KEY exported.
func applyEnvKeys(cfg *Config) {
	envProfiles := []struct {
		provider string
		envVar   string
	}{
		{"gemini", "GOOGLE_API_KEY"},
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"perplexity", "PERPLEXITY_API_KEY"},
	}

	for _, ep := range envProfiles {
		if _, ok := cfg.ProfileFor(ep.provider); ok {
			continue
		}
		key := os.Getenv(ep.envVar)
		if key == "" {
			continue
		}
		cfg.AI.Profiles = append(cfg.AI.Profiles, AIProfile{
			ID:       ep.provider + "-env",
			Provider: ep.provider,
			APIKey:   key,
			Priority: 100,
		})
	}
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".agentd", "agentd.json")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("docs", cfg.Docs)
	v.Set("agents", cfg.Agents)
	v.Set("ai", cfg.AI)
	v.Set("tools", cfg.Tools)
	v.Set("sessions", cfg.Sessions)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentd", "agentd.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
