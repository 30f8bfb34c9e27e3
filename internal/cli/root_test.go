package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := GetRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func writeTestConfig(t *testing.T, cfg map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "agentd.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentd version "+version)
}

func TestAgentsCommand(t *testing.T) {
	out, err := execute(t, "agents", "--config", filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Revsup Candidate Qualify")
	assert.Contains(t, out, "gemini-1.5-flash")
	assert.Contains(t, out, "1 agent(s) configured")
}

func TestValidateCommand(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "none.json"))
		require.NoError(t, err)
		assert.Contains(t, out, "Config OK")
	})

	t.Run("invalid config fails", func(t *testing.T) {
		path := writeTestConfig(t, map[string]interface{}{
			"server": map[string]interface{}{"port": -1},
		})

		_, err := execute(t, "validate", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
