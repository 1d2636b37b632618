package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// TTSConfig configures an optional spoken-narration backend. A locally
// running OpenAI-speech-API-compatible server (BaseURL) synthesizes audio
// for each narrated line; nothing is spoken if Enabled is false or the
// server doesn't respond to a health check.
type TTSConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Voice   string        `yaml:"voice"`
	Timeout time.Duration `yaml:"timeout"`
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// TTSNarrator speaks narration lines aloud through a local TTS server,
// fire-and-forget, on top of whatever the rest of the logging stack does
// with the same line. It only implements Narrate: task-lifecycle events
// read naturally enough through LogTaskStarted/etc.'s text already, so
// MultiLogger pairs a TTSNarrator alongside a ConsoleLogger/FileLogger
// rather than replacing either.
type TTSNarrator struct {
	cfg        TTSConfig
	httpClient *http.Client
	available  bool
	checkOnce  sync.Once
}

// NewTTSNarrator constructs a TTSNarrator. The health check against
// cfg.BaseURL is deferred until the first Narrate call.
func NewTTSNarrator(cfg TTSConfig) *TTSNarrator {
	return &TTSNarrator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *TTSNarrator) isAvailable() bool {
	if !t.cfg.Enabled {
		return false
	}
	t.checkOnce.Do(func() {
		resp, err := t.httpClient.Get(t.cfg.BaseURL + "/")
		if err != nil {
			return
		}
		defer resp.Body.Close()
		t.available = resp.StatusCode == http.StatusOK
	})
	return t.available
}

// Narrate synthesizes and plays line in the background. Unavailable or
// disabled servers, and any synthesis/playback error, are silently
// swallowed: narration is a convenience, not something a task should fail
// over.
func (t *TTSNarrator) Narrate(line string) {
	if !t.isAvailable() {
		return
	}
	go t.speak(line)
}

// LogTaskStarted, LogTaskCompleted, LogTaskFailed, and
// LogTaskRetryScheduled are no-ops: a TTSNarrator only speaks narration
// lines, letting it sit in a MultiLogger's backend list (which requires
// the full Logger interface) alongside a ConsoleLogger/FileLogger that do
// handle task-lifecycle events.
func (t *TTSNarrator) LogTaskStarted(task *agentcore.Task)                        {}
func (t *TTSNarrator) LogTaskCompleted(task *agentcore.Task)                      {}
func (t *TTSNarrator) LogTaskFailed(task *agentcore.Task, err error)              {}
func (t *TTSNarrator) LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration) {}

func (t *TTSNarrator) speak(text string) {
	body, err := json.Marshal(speechRequest{
		Model:          t.cfg.Model,
		Input:          text,
		Voice:          t.cfg.Voice,
		ResponseFormat: "wav",
		Speed:          1.0,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, t.cfg.BaseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	playAudio(audio)
}

// playAudio writes audio to a temp file and plays it with the platform's
// audio player (afplay on macOS, aplay on Linux); unsupported platforms are
// a silent no-op.
func playAudio(audio []byte) {
	tmp, err := os.CreateTemp("", "agentcore-tts-*.wav")
	if err != nil {
		return
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return
	}
	tmp.Close()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("afplay", path)
	case "linux":
		cmd = exec.Command("aplay", "-q", path)
	default:
		return
	}
	cmd.Run()
}
