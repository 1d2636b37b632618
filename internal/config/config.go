// Package config loads the agent core's YAML configuration document and
// layers environment-variable overrides on top, using gopkg.in/yaml.v3:
// typed sub-structs with yaml tags, a DefaultConfig constructor, and a
// Validate method.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/logger"
)

// AgentConfig controls the Task Queue/Executor (C4).
type AgentConfig struct {
	// MaxConcurrent is the maximum number of tasks the dispatcher runs at
	// once (0 or less falls back to the queue's default of 3).
	MaxConcurrent int `yaml:"max_concurrent"`

	// DefaultTimeout is applied to a task that doesn't set its own Timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// DefaultMaxRetries is applied to a task that doesn't set its own
	// MaxRetries.
	DefaultMaxRetries int `yaml:"default_max_retries"`

	// ShutdownTimeout bounds how long Stop waits for in-flight tasks to
	// finish before returning.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MonitorConfig controls the Continuous Monitor (C6).
type MonitorConfig struct {
	// Triggers is the configured set of event sources the monitor watches.
	Triggers []agentcore.Trigger `yaml:"triggers"`

	// ShutdownTimeout bounds how long Stop waits for in-flight trigger
	// goroutines to finish before returning.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ToolManagerConfig controls the Remote Tool Manager (C5/§4.5/§6).
type ToolManagerConfig struct {
	// ClientName/ClientVersion are sent in the MCP initialize handshake.
	ClientName    string `yaml:"client_name"`
	ClientVersion string `yaml:"client_version"`

	// Servers maps a configured server id to its connection details.
	Servers map[string]agentcore.RemoteServer `yaml:"servers"`
}

// PlannerConfig controls the ReAct Planner (C7).
type PlannerConfig struct {
	// MaxCycles bounds the Reason/Act/Observe/Reflect loop per subtask.
	MaxCycles int `yaml:"max_cycles"`

	// LMTimeout is loaded and validated, but no component reads it: the
	// planner's language-model calls are bounded only by their context.
	LMTimeout time.Duration `yaml:"lm_timeout"`
}

// DenylistConfig describes the destructive-shell-command denylist that
// ShellStrategy and BackgroundStrategy consult before executing a command.
// The pattern set itself is a fixed, immutable list compiled into the binary
// (see internal/strategy/denylist.go) — per spec.md's Design Notes, additions
// require a code change and review, not runtime configuration. Enabled is
// loaded from the file but not read by any strategy: the check always runs,
// and this section cannot turn it off, add patterns or remove them.
type DenylistConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the agent core's top-level configuration document.
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written.
	LogDir string `yaml:"log_dir"`

	Agent       AgentConfig       `yaml:"agent"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	ToolManager ToolManagerConfig `yaml:"tool_manager"`
	Planner     PlannerConfig     `yaml:"planner"`
	Denylist    DenylistConfig    `yaml:"denylist"`
	TTS         logger.TTSConfig  `yaml:"tts"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   filepath.Join(".agentcore", "logs"),
		Agent: AgentConfig{
			MaxConcurrent:     0,
			DefaultTimeout:    30 * time.Minute,
			DefaultMaxRetries: 3,
			ShutdownTimeout:   3 * time.Second,
		},
		Monitor: MonitorConfig{
			Triggers:        nil,
			ShutdownTimeout: 3 * time.Second,
		},
		ToolManager: ToolManagerConfig{
			ClientName:    "agentcore",
			ClientVersion: "1.0.0",
			Servers:       map[string]agentcore.RemoteServer{},
		},
		Planner: PlannerConfig{
			MaxCycles: 5,
			LMTimeout: 2 * time.Minute,
		},
		Denylist: DenylistConfig{
			Enabled: true,
		},
		TTS: logger.TTSConfig{
			Enabled: false,
			BaseURL: "http://127.0.0.1:8880",
			Model:   "tts-1",
			Voice:   "alloy",
			Timeout: 5 * time.Second,
		},
	}
}

// LoadConfig loads configuration from path. If the file doesn't exist, it
// returns defaults (with env overrides applied) without error; if it
// exists but is malformed, it returns a *agentcore.ConfigError.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, agentcore.NewConfigError(path, "failed to read config file", err)
	}

	// Use a temporary struct to handle duration fields, which YAML sees as
	// plain strings ("30m", "3s") rather than time.Duration.
	type yamlAgent struct {
		MaxConcurrent     int    `yaml:"max_concurrent"`
		DefaultTimeout    string `yaml:"default_timeout"`
		DefaultMaxRetries int    `yaml:"default_max_retries"`
		ShutdownTimeout   string `yaml:"shutdown_timeout"`
	}
	type yamlMonitor struct {
		Triggers        []agentcore.Trigger `yaml:"triggers"`
		ShutdownTimeout string              `yaml:"shutdown_timeout"`
	}
	type yamlPlanner struct {
		MaxCycles int    `yaml:"max_cycles"`
		LMTimeout string `yaml:"lm_timeout"`
	}
	type yamlTTS struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Voice   string `yaml:"voice"`
		Timeout string `yaml:"timeout"`
	}
	type yamlConfig struct {
		LogLevel    string            `yaml:"log_level"`
		LogDir      string            `yaml:"log_dir"`
		Agent       yamlAgent         `yaml:"agent"`
		Monitor     yamlMonitor       `yaml:"monitor"`
		ToolManager ToolManagerConfig `yaml:"tool_manager"`
		Planner     yamlPlanner       `yaml:"planner"`
		Denylist    DenylistConfig    `yaml:"denylist"`
		TTS         yamlTTS           `yaml:"tts"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, agentcore.NewConfigError(path, "failed to parse config file", err)
	}

	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}

	if yc.Agent.MaxConcurrent != 0 {
		cfg.Agent.MaxConcurrent = yc.Agent.MaxConcurrent
	}
	if d, err := parseOptionalDuration(path, "agent.default_timeout", yc.Agent.DefaultTimeout); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.Agent.DefaultTimeout = d
	}
	if yc.Agent.DefaultMaxRetries != 0 {
		cfg.Agent.DefaultMaxRetries = yc.Agent.DefaultMaxRetries
	}
	if d, err := parseOptionalDuration(path, "agent.shutdown_timeout", yc.Agent.ShutdownTimeout); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.Agent.ShutdownTimeout = d
	}

	if len(yc.Monitor.Triggers) > 0 {
		cfg.Monitor.Triggers = yc.Monitor.Triggers
	}
	if d, err := parseOptionalDuration(path, "monitor.shutdown_timeout", yc.Monitor.ShutdownTimeout); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.Monitor.ShutdownTimeout = d
	}

	if yc.ToolManager.ClientName != "" {
		cfg.ToolManager.ClientName = yc.ToolManager.ClientName
	}
	if yc.ToolManager.ClientVersion != "" {
		cfg.ToolManager.ClientVersion = yc.ToolManager.ClientVersion
	}
	if len(yc.ToolManager.Servers) > 0 {
		cfg.ToolManager.Servers = yc.ToolManager.Servers
	}

	if yc.Planner.MaxCycles != 0 {
		cfg.Planner.MaxCycles = yc.Planner.MaxCycles
	}
	if d, err := parseOptionalDuration(path, "planner.lm_timeout", yc.Planner.LMTimeout); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.Planner.LMTimeout = d
	}

	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if denylistSection, exists := rawMap["denylist"]; exists && denylistSection != nil {
			if denylistMap, ok := denylistSection.(map[string]interface{}); ok {
				if _, exists := denylistMap["enabled"]; exists {
					cfg.Denylist.Enabled = yc.Denylist.Enabled
				}
			}
		}
		if ttsSection, exists := rawMap["tts"]; exists && ttsSection != nil {
			if ttsMap, ok := ttsSection.(map[string]interface{}); ok {
				if _, exists := ttsMap["enabled"]; exists {
					cfg.TTS.Enabled = yc.TTS.Enabled
				}
			}
		}
	}
	if yc.TTS.BaseURL != "" {
		cfg.TTS.BaseURL = yc.TTS.BaseURL
	}
	if yc.TTS.Model != "" {
		cfg.TTS.Model = yc.TTS.Model
	}
	if yc.TTS.Voice != "" {
		cfg.TTS.Voice = yc.TTS.Voice
	}
	if d, err := parseOptionalDuration(path, "tts.timeout", yc.TTS.Timeout); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.TTS.Timeout = d
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func parseOptionalDuration(path, field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, agentcore.NewConfigError(path, fmt.Sprintf("invalid duration for %s: %q", field, raw), err)
	}
	return d, nil
}

// applyEnvOverrides applies the documented environment variables, layered
// on top of whatever the config file (or defaults) already produced.
// Recognized variables:
//   - AGENT_MAX_TASKS (agent.max_concurrent)
//   - AGENT_INTERVAL_MS (interval applied to interval/system_metric/
//     log_pattern triggers that set no Interval of their own)
//
// AGENT_MODE and AGENT_AUTO_SAVE are not applied here; they are exposed
// through Mode and AutoSaveEnabled, which no startup path calls.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_MAX_TASKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxConcurrent = n
		}
	}
	if v := os.Getenv("AGENT_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			for i := range cfg.Monitor.Triggers {
				t := &cfg.Monitor.Triggers[i]
				if t.Interval == "" && (t.Type == agentcore.TriggerInterval || t.Type == agentcore.TriggerSystemMetric || t.Type == agentcore.TriggerLogPattern) {
					t.Interval = fmt.Sprintf("%dms", ms)
				}
			}
		}
	}
}

// AutoSaveEnabled reports whether AGENT_AUTO_SAVE requests the state store
// persist after every task transition (default true; "0"/"false" disable
// it).
func AutoSaveEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AGENT_AUTO_SAVE")))
	return v != "0" && v != "false"
}

// Mode returns AGENT_MODE, defaulting to "foreground".
func Mode() string {
	v := strings.TrimSpace(os.Getenv("AGENT_MODE"))
	if v == "" {
		return "foreground"
	}
	return v
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return agentcore.NewConfigError("", fmt.Sprintf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel), nil)
	}
	if c.Agent.MaxConcurrent < 0 {
		return agentcore.NewConfigError("", fmt.Sprintf("agent.max_concurrent must be >= 0, got %d", c.Agent.MaxConcurrent), nil)
	}
	if c.Agent.DefaultMaxRetries < 0 {
		return agentcore.NewConfigError("", fmt.Sprintf("agent.default_max_retries must be >= 0, got %d", c.Agent.DefaultMaxRetries), nil)
	}
	if c.Planner.MaxCycles <= 0 {
		return agentcore.NewConfigError("", fmt.Sprintf("planner.max_cycles must be > 0, got %d", c.Planner.MaxCycles), nil)
	}
	for id, srv := range c.ToolManager.Servers {
		if srv.URL == "" {
			return agentcore.NewConfigError("", fmt.Sprintf("tool_manager.servers[%s].url must not be empty", id), nil)
		}
	}
	return nil
}

// Save writes c to path as YAML, creating the parent directory if needed.
// Used by agent-config to persist CLI-driven edits for the next agent-start.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return agentcore.NewConfigError(path, "create config directory", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return agentcore.NewConfigError(path, "marshal config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return agentcore.NewConfigError(path, "write config file", err)
	}
	return nil
}
