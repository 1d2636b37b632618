package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "warn")

	cl.LogInfo("should not appear")
	cl.LogWarn("should appear")
	cl.LogError("should also appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
	assert.Contains(t, out, "should also appear")
}

func TestConsoleLoggerDefaultsToInfoOnInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "not-a-level")

	cl.LogTrace("trace message")
	cl.LogInfo("info message")

	out := buf.String()
	assert.NotContains(t, out, "trace message")
	assert.Contains(t, out, "info message")
}

func TestConsoleLoggerNarrateLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.Narrate("narration line")
	assert.Contains(t, buf.String(), "narration line")
	assert.Contains(t, buf.String(), "[INFO]")
}

func TestConsoleLoggerTaskLifecycleMethods(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "trace")

	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Description = "run the build"

	cl.LogTaskStarted(task)
	cl.LogTaskCompleted(task)
	cl.LogTaskFailed(task, assert.AnError)
	cl.LogTaskRetryScheduled(task, 2*time.Second)

	out := buf.String()
	assert.Contains(t, out, "started: run the build")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "retry scheduled in 2s")
}

func TestFileLoggerWritesRunLogAndLatestSymlink(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithDirAndLevel(dir, "info")
	require.NoError(t, err)
	defer fl.Close()

	fl.LogInfo("hello from the run log")

	latest := filepath.Join(dir, "latest.log")
	target, err := os.Readlink(latest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.runFile), target)

	contents, err := os.ReadFile(fl.runFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "hello from the run log")
	assert.Contains(t, string(contents), "=== Agent Run Log ===")
}

func TestFileLoggerCreatesTasksSubdirectory(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithDirAndLevel(dir, "info")
	require.NoError(t, err)
	defer fl.Close()

	info, err := os.Stat(filepath.Join(dir, "tasks"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	path := fl.TaskLogPath("task-123")
	assert.True(t, strings.HasSuffix(path, filepath.Join("tasks", "task-123.log")))
}

func TestFileLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithDirAndLevel(dir, "error")
	require.NoError(t, err)
	defer fl.Close()

	fl.LogWarn("should be filtered")
	fl.LogError("should be kept")

	contents, err := os.ReadFile(fl.runFile)
	require.NoError(t, err)
	assert.NotContains(t, string(contents), "should be filtered")
	assert.Contains(t, string(contents), "should be kept")
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithDirAndLevel(dir, "info")
	require.NoError(t, err)

	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
}
