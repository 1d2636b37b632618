package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAgentHomeHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTCORE_HOME", dir)

	home, err := GetAgentHome()
	require.NoError(t, err)
	assert.Equal(t, dir, home)
}

func TestGetHistoryDBPathUnderAgentHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTCORE_HOME", dir)

	path, err := GetHistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history", "executions.db"), path)
}

func TestGetHistoryDirCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTCORE_HOME", dir)

	historyDir, err := GetHistoryDir()
	require.NoError(t, err)

	info, err := os.Stat(historyDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
