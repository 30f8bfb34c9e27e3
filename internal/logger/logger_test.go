package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console only", func(t *testing.T) {
		l, err := New(Config{Level: "debug", Console: true})
		require.NoError(t, err)
		defer l.Close()

		assert.Equal(t, "debug", l.GetZerolog().GetLevel().String())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		l, err := New(Config{Level: "verbose", Console: true})
		require.NoError(t, err)
		defer l.Close()

		assert.Equal(t, "info", l.GetZerolog().GetLevel().String())
	})

	t.Run("file output", func(t *testing.T) {
		dir := t.TempDir()
		logFile := filepath.Join(dir, "logs", "agentd.log")

		l, err := New(Config{Level: "info", File: logFile})
		require.NoError(t, err)

		zl := l.GetZerolog()
		zl.Info().Str("component", "test").Msg("hello")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"hello"`)
		assert.Contains(t, string(data), `"component":"test"`)
	})

	t.Run("redacts credentials", func(t *testing.T) {
		dir := t.TempDir()
		logFile := filepath.Join(dir, "agentd.log")

		l, err := New(Config{Level: "info", File: logFile})
		require.NoError(t, err)

		zl := l.GetZerolog()
		zl.Info().
			Str("api_key", "sk-ant-REDACTED").
			Msg("profile loaded")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "sk-ant-REDACTED")
		assert.Contains(t, string(data), "[REDACTED]")
		assert.Contains(t, string(data), "profile loaded")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
}
