package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Planner.MaxCycles)
	assert.True(t, cfg.Denylist.Enabled)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Agent.MaxConcurrent, cfg.Agent.MaxConcurrent)
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
log_level: debug
agent:
  max_concurrent: 4
  default_timeout: 45m
  default_max_retries: 5
planner:
  max_cycles: 3
  lm_timeout: 30s
denylist:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Agent.MaxConcurrent)
	assert.Equal(t, 45*time.Minute, cfg.Agent.DefaultTimeout)
	assert.Equal(t, 5, cfg.Agent.DefaultMaxRetries)
	assert.Equal(t, 3, cfg.Planner.MaxCycles)
	assert.Equal(t, 30*time.Second, cfg.Planner.LMTimeout)
	assert.False(t, cfg.Denylist.Enabled)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [this is not a map"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  default_timeout: not-a-duration\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestEnvOverridesMaxTasks(t *testing.T) {
	t.Setenv("AGENT_MAX_TASKS", "7")
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, 7, cfg.Agent.MaxConcurrent)
}

func TestAutoSaveEnabledDefaultsTrue(t *testing.T) {
	assert.True(t, AutoSaveEnabled())
	t.Setenv("AGENT_AUTO_SAVE", "false")
	assert.False(t, AutoSaveEnabled())
}

func TestModeDefaultsToForeground(t *testing.T) {
	assert.Equal(t, "foreground", Mode())
	t.Setenv("AGENT_MODE", "daemon")
	assert.Equal(t, "daemon", Mode())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeMaxConcurrent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.MaxConcurrent = -1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyServerURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToolManager.Servers = map[string]agentcore.RemoteServer{
		"broken": {ID: "broken"},
	}
	require.Error(t, cfg.Validate())
}
