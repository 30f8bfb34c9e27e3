package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `{
			"mcps": {
				"perplexity-ask": {
					"command": "npx",
					"args": ["-y", "server-perplexity-ask"],
					"env": {"PERPLEXITY_API_KEY": "pk-123"}
				}
			}
		}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		sc, ok := cfg.Server("perplexity-ask")
		require.True(t, ok)
		assert.Equal(t, "npx", sc.Command)
		assert.Equal(t, []string{"-y", "server-perplexity-ask"}, sc.Args)
		assert.Equal(t, "pk-123", sc.Env["PERPLEXITY_API_KEY"])
	})

	t.Run("unknown server", func(t *testing.T) {
		path := writeConfig(t, `{"mcps": {}}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		_, ok := cfg.Server("missing")
		assert.False(t, ok)
	})

	t.Run("missing mcps key", func(t *testing.T) {
		path := writeConfig(t, `{"servers": {}}`)

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid MCP config")
	})

	t.Run("missing command", func(t *testing.T) {
		path := writeConfig(t, `{"mcps": {"bad": {"args": []}}}`)

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid MCP config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeConfig(t, `{broken`)

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
