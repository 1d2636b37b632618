package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetAgentHome returns the agent core's home directory.
// Priority order:
//  1. AGENTCORE_HOME environment variable (if set)
//  2. .agentcore under the repository root (found via a .agentcore-root
//     marker or go.mod)
//  3. .agentcore under the current working directory (fallback)
//
// The directory is created if it doesn't exist.
func GetAgentHome() (string, error) {
	if home := os.Getenv("AGENTCORE_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create agent home directory: %w", err)
		}
		return home, nil
	}

	if repoRoot, err := findRepoRoot(); err == nil && repoRoot != "" {
		home := filepath.Join(repoRoot, ".agentcore")
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create agent home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".agentcore")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create agent home directory: %w", err)
	}
	return home, nil
}

// findRepoRoot finds the module's repository root by walking up from the
// current working directory looking for a .agentcore-root marker or a
// go.mod declaring this module.
func findRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		markerPath := filepath.Join(current, ".agentcore-root")
		if _, err := os.Stat(markerPath); err == nil {
			return current, nil
		}

		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "github.com/harrison/agentcore") {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("agent core repository root not found (looking for .agentcore-root or go.mod with github.com/harrison/agentcore)")
}

// GetHistoryDBPath returns the absolute path to the execution history
// database: $AGENTCORE_HOME/history/executions.db.
func GetHistoryDBPath() (string, error) {
	home, err := GetAgentHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history", "executions.db"), nil
}

// GetHistoryDir returns the execution history directory, creating it if
// necessary.
func GetHistoryDir() (string, error) {
	home, err := GetAgentHome()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, "history")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}
	return dir, nil
}

// GetControlSocketPath returns the path to the Unix domain socket a running
// agent-start process listens on, and that agent-status/agent-task/etc.
// dial into: $AGENTCORE_HOME/agent.sock.
func GetControlSocketPath() (string, error) {
	home, err := GetAgentHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "agent.sock"), nil
}

// GetSnapshotPath returns the path to the persisted task snapshot file:
// $AGENTCORE_HOME/snapshot.json.
func GetSnapshotPath() (string, error) {
	home, err := GetAgentHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "snapshot.json"), nil
}

// GetMCPConfigPath returns the path to the default remote-tool-server
// configuration file: $AGENTCORE_HOME/mcp.json.
func GetMCPConfigPath() (string, error) {
	home, err := GetAgentHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "mcp.json"), nil
}
