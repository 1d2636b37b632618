package logger

import (
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// MultiLogger fans narration and task-lifecycle events out to multiple
// backends (a ConsoleLogger for interactive progress, a FileLogger for the
// durable run log) for a single run.
type MultiLogger struct {
	backends []interface {
		Narrate(line string)
		LogTaskStarted(task *agentcore.Task)
		LogTaskCompleted(task *agentcore.Task)
		LogTaskFailed(task *agentcore.Task, err error)
		LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration)
	}
}

// NewMultiLogger fans out to every backend in order.
func NewMultiLogger(backends ...interface {
	Narrate(line string)
	LogTaskStarted(task *agentcore.Task)
	LogTaskCompleted(task *agentcore.Task)
	LogTaskFailed(task *agentcore.Task, err error)
	LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration)
}) *MultiLogger {
	return &MultiLogger{backends: backends}
}

func (m *MultiLogger) Narrate(line string) {
	for _, b := range m.backends {
		b.Narrate(line)
	}
}

func (m *MultiLogger) LogTaskStarted(task *agentcore.Task) {
	for _, b := range m.backends {
		b.LogTaskStarted(task)
	}
}

func (m *MultiLogger) LogTaskCompleted(task *agentcore.Task) {
	for _, b := range m.backends {
		b.LogTaskCompleted(task)
	}
}

func (m *MultiLogger) LogTaskFailed(task *agentcore.Task, err error) {
	for _, b := range m.backends {
		b.LogTaskFailed(task, err)
	}
}

func (m *MultiLogger) LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration) {
	for _, b := range m.backends {
		b.LogTaskRetryScheduled(task, delay)
	}
}
