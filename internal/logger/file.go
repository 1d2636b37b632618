package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// FileLogger persists run events under a log directory: a timestamped
// per-run log file, a latest.log symlink pointing at it, and a tasks/
// subdirectory available for per-task detail logs. Thread-safe.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	tasksDir string
	logLevel string

	mu sync.Mutex
}

// NewFileLogger creates a FileLogger writing to .agentcore/logs/ at "info"
// level.
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(filepath.Join(".agentcore", "logs"), "info")
}

// NewFileLoggerWithDir creates a FileLogger at logDir, "info" level.
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a FileLogger at logDir, filtering
// messages below logLevel.
func NewFileLoggerWithDirAndLevel(logDir, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	tasksDir := filepath.Join(logDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		tasksDir: tasksDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== Agent Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("trace", message) }
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("debug", message) }
func (fl *FileLogger) LogInfo(message string)  { fl.logWithLevel("info", message) }
func (fl *FileLogger) LogWarn(message string)  { fl.logWithLevel("warn", message) }
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("error", message) }

func (fl *FileLogger) logWithLevel(level, message string) {
	if !fl.shouldLog(level) {
		return
	}
	formatted := fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message)
	fl.writeRunLog(formatted)
}

// Narrate implements strategy.Narrator, monitor.Narrator, and
// planner.Narrator: all three emit their line at info level.
func (fl *FileLogger) Narrate(line string) { fl.LogInfo(line) }

// LogTaskStarted, LogTaskCompleted, LogTaskFailed, and
// LogTaskRetryScheduled implement internal/queue.Logger.
func (fl *FileLogger) LogTaskStarted(task *agentcore.Task) {
	fl.LogInfo(fmt.Sprintf("task %s started: %s", task.ID, task.Description))
}

func (fl *FileLogger) LogTaskCompleted(task *agentcore.Task) {
	fl.LogInfo(fmt.Sprintf("task %s completed", task.ID))
}

func (fl *FileLogger) LogTaskFailed(task *agentcore.Task, err error) {
	fl.LogError(fmt.Sprintf("task %s failed: %v", task.ID, err))
}

func (fl *FileLogger) LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration) {
	fl.LogWarn(fmt.Sprintf("task %s retry scheduled in %s", task.ID, delay))
}

// TaskLogPath returns the path a caller should use for a per-task detail
// log file under the tasks/ subdirectory, e.g. for persisting a task's full
// stdout/stderr alongside the run log's single summary line.
func (fl *FileLogger) TaskLogPath(taskID string) string {
	return filepath.Join(fl.tasksDir, taskID+".log")
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog != nil {
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return
	}
	fl.runLog.WriteString(message)
}
