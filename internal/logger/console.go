// Package logger provides the two narration/logging backends the agent
// core depends on: a colorized console logger for interactive operation
// and a file logger that persists per-run logs under the agent's home
// directory. Both implement the narrow Logger/Narrator seams the queue,
// strategy, monitor, and planner packages each depend on independently.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/harrison/agentcore/internal/agentcore"
)

const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs to a writer with "[HH:MM:SS] [LEVEL] message" framing,
// colorized when writing to a TTY, filtered by a configured minimum level.
// Safe for concurrent use.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	colorOutput bool

	mu sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger writing to writer. logLevel
// accepts trace/debug/info/warn/error (case-insensitive); invalid or empty
// defaults to "info". Color output is enabled automatically when writer is
// a TTY (os.Stdout/os.Stderr).
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

func isTerminal(w io.Writer) bool {
	switch w {
	case os.Stdout:
		return isatty.IsTerminal(os.Stdout.Fd())
	case os.Stderr:
		return isatty.IsTerminal(os.Stderr.Fd())
	default:
		return false
	}
}

func normalizeLogLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	default:
		return "info"
	}
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func timestamp() string { return time.Now().Format("15:04:05") }

var levelColors = map[string]*color.Color{
	"TRACE": color.New(color.FgHiBlack),
	"DEBUG": color.New(color.FgCyan),
	"INFO":  color.New(color.FgGreen),
	"WARN":  color.New(color.FgYellow),
	"ERROR": color.New(color.FgRed, color.Bold),
}

// terminalWidth returns the current terminal column width, or 0 if writer
// isn't a TTY whose size can be queried (piped output, file logger, tests).
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// truncateToWidth shortens message to fit within width display columns
// (accounting for multi-byte/wide runes via go-runewidth), leaving room
// for the "[HH:MM:SS] [LEVEL] " prefix. A width of 0 disables truncation.
func truncateToWidth(message string, width int) string {
	if width <= 0 {
		return message
	}
	const prefixAllowance = 20
	budget := width - prefixAllowance
	if budget <= 0 || runewidth.StringWidth(message) <= budget {
		return message
	}
	return runewidth.Truncate(message, budget, "...")
}

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	message = truncateToWidth(message, terminalWidth(cl.writer))

	ts := timestamp()
	if cl.colorOutput {
		if c, ok := levelColors[level]; ok {
			fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, c.Sprint(level), message)
			return
		}
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("TRACE", message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("DEBUG", message) }
func (cl *ConsoleLogger) LogInfo(message string)  { cl.logWithLevel("INFO", message) }
func (cl *ConsoleLogger) LogWarn(message string)  { cl.logWithLevel("WARN", message) }
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("ERROR", message) }

// Narrate implements strategy.Narrator, monitor.Narrator, and
// planner.Narrator: all three emit their line at info level.
func (cl *ConsoleLogger) Narrate(line string) { cl.LogInfo(line) }

// LogTaskStarted, LogTaskCompleted, LogTaskFailed, and
// LogTaskRetryScheduled implement internal/queue.Logger.
func (cl *ConsoleLogger) LogTaskStarted(task *agentcore.Task) {
	cl.LogInfo(fmt.Sprintf("task %s started: %s", task.ID, task.Description))
}

func (cl *ConsoleLogger) LogTaskCompleted(task *agentcore.Task) {
	cl.LogInfo(fmt.Sprintf("task %s completed", task.ID))
}

func (cl *ConsoleLogger) LogTaskFailed(task *agentcore.Task, err error) {
	cl.LogError(fmt.Sprintf("task %s failed: %v", task.ID, err))
}

func (cl *ConsoleLogger) LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration) {
	cl.LogWarn(fmt.Sprintf("task %s retry scheduled in %s", task.ID, delay))
}
