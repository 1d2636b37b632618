package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultSystemPrompt is used when the caller supplies no system prompt,
// to keep responses machine-parseable.
const DefaultSystemPrompt = "You are a developer assistant. Respond plainly; when asked for a specific format, follow it exactly."

// CLIClient is a reusable LanguageModel backed by a local CLI binary
// (create once, use many times, following the http.Client idiom). It
// shells out to BinaryPath with the prompt as its -p argument and expects a JSON
// envelope of the shape {"content": "...", "usage": {"input_tokens": N,
// "output_tokens": N}} on stdout; plain text stdout is accepted as a
// fallback so the client also works against simpler backends.
type CLIClient struct {
	// BinaryPath is the path to the LM CLI binary. Defaults to "claude".
	BinaryPath string

	// Timeout bounds a single invocation. Zero means no deadline beyond
	// ctx's own.
	Timeout time.Duration

	authReady func() bool
}

// NewCLIClient creates a CLIClient with BinaryPath defaulted to "claude".
// authReady, if non-nil, backs IsReady(); a nil function means "always
// ready", appropriate for tests.
func NewCLIClient(authReady func() bool) *CLIClient {
	return &CLIClient{BinaryPath: "claude", authReady: authReady}
}

// IsReady implements Auth.
func (c *CLIClient) IsReady() bool {
	if c.authReady == nil {
		return true
	}
	return c.authReady()
}

type cliEnvelope struct {
	Content string `json:"content"`
	Usage   struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Ask implements LanguageModel.
func (c *CLIClient) Ask(ctx context.Context, system, user string, history []Message) (string, Usage, error) {
	bin := c.BinaryPath
	if bin == "" {
		bin = "claude"
	}

	ctxToUse := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctxToUse, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	systemPrompt := DefaultSystemPrompt
	if system != "" {
		systemPrompt = system
	}

	prompt := renderPrompt(user, history)

	args := []string{"-p", prompt, "--system-prompt", systemPrompt, "--output-format", "json"}
	cmd := exec.CommandContext(ctxToUse, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", Usage{}, fmt.Errorf("llm invocation failed: %w (stderr: %s)", err, stderr.String())
	}

	content, usage := parseEnvelope(stdout.Bytes())
	return content, usage, nil
}

// renderPrompt folds history into a single prompt string in role-prefixed
// lines, the simplest format a CLI-backed model can condition on without a
// native chat-turn API.
func renderPrompt(user string, history []Message) string {
	if len(history) == 0 {
		return user
	}
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	sb.WriteString("user: ")
	sb.WriteString(user)
	return sb.String()
}

// parseEnvelope extracts content and usage from the CLI's JSON envelope,
// falling back to treating the raw output as the content when it isn't
// valid JSON (e.g. a simpler backend that just prints text).
func parseEnvelope(raw []byte) (string, Usage) {
	var env cliEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Content != "" {
		return env.Content, Usage{InputTokens: env.Usage.InputTokens, OutputTokens: env.Usage.OutputTokens}
	}
	return strings.TrimSpace(string(raw)), Usage{}
}
