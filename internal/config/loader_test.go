package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
	})

	t.Run("loads values from file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "agentd.json")
		content := `{
			"server": {"port": 9000},
			"docs": {"port": 9090, "upstream_url": "http://localhost:9000"},
			"agents": [
				{"id": "helper", "name": "helper", "model": "gemini-1.5-pro", "instruction": "Be helpful."}
			]
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		loader := NewLoader(path)
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 9090, cfg.Docs.Port)
		assert.Equal(t, "http://localhost:9000", cfg.Docs.UpstreamURL)
		require.Len(t, cfg.Agents, 1)
		assert.Equal(t, "helper", cfg.Agents[0].ID)
		assert.Equal(t, "gemini-1.5-pro", cfg.Agents[0].Model)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "agentd.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		loader := NewLoader(path)
		_, err := loader.Load()
		assert.Error(t, err)
	})

	t.Run("gemini profile from environment", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "test-key-123")

		loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))
		cfg, err := loader.Load()
		require.NoError(t, err)

		profile, ok := cfg.ProfileFor("gemini")
		require.True(t, ok)
		assert.Equal(t, "test-key-123", profile.APIKey)
	})
}

func TestLoaderSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentd.json")

	loader := NewLoader(path)
	cfg := DefaultConfig()
	cfg.Server.Port = 9999
	cfg.DataDir = dir

	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.Server.Port)
}

func TestGetConfigPath(t *testing.T) {
	loader := NewLoader("/etc/agentd/agentd.json")
	assert.Equal(t, "/etc/agentd/agentd.json", loader.GetConfigPath())
}
