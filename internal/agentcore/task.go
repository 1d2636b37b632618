// Package agentcore holds the core data model shared by the queue, the
// executor strategies, the monitor, and the planner: tasks, plans, and the
// remote-server/trigger records the rest of the agent operates on.
package agentcore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskKind is the closed set of task variants the dispatcher understands.
// Adding a kind requires a matching executor strategy.
type TaskKind string

const (
	KindFileRead             TaskKind = "FILE_READ"
	KindFileWrite            TaskKind = "FILE_WRITE"
	KindFileCopy             TaskKind = "FILE_COPY"
	KindFileDelete           TaskKind = "FILE_DELETE"
	KindDirectoryScan        TaskKind = "DIRECTORY_SCAN"
	KindShellCommand         TaskKind = "SHELL_COMMAND"
	KindScriptExecution      TaskKind = "SCRIPT_EXECUTION"
	KindBackgroundProcess    TaskKind = "BACKGROUND_PROCESS"
	KindAIAnalysis           TaskKind = "AI_ANALYSIS"
	KindCodeGeneration       TaskKind = "CODE_GENERATION"
	KindDecision             TaskKind = "DECISION"
	KindTextProcessing       TaskKind = "TEXT_PROCESSING"
	KindRemoteToolCall       TaskKind = "REMOTE_TOOL_CALL"
	KindRemoteResourceAccess TaskKind = "REMOTE_RESOURCE_ACCESS"
	KindRemoteServerAdmin    TaskKind = "REMOTE_SERVER_ADMIN"
	KindSystem               TaskKind = "SYSTEM"
	KindSystemMonitoring     TaskKind = "SYSTEM_MONITORING"
	KindLogAnalysis          TaskKind = "LOG_ANALYSIS"
	KindHealthCheck          TaskKind = "HEALTH_CHECK"
	KindComposite            TaskKind = "COMPOSITE"
	KindCustom               TaskKind = "CUSTOM"
)

// IsValid reports whether k is a member of the closed task-kind set.
func (k TaskKind) IsValid() bool {
	switch k {
	case KindFileRead, KindFileWrite, KindFileCopy, KindFileDelete, KindDirectoryScan,
		KindShellCommand, KindScriptExecution, KindBackgroundProcess,
		KindAIAnalysis, KindCodeGeneration, KindDecision, KindTextProcessing,
		KindRemoteToolCall, KindRemoteResourceAccess, KindRemoteServerAdmin,
		KindSystem, KindSystemMonitoring, KindLogAnalysis, KindHealthCheck,
		KindComposite, KindCustom:
		return true
	default:
		return false
	}
}

// Priority orders ready tasks; lower numeric value runs earlier.
type Priority int

const (
	PriorityCritical   Priority = 1
	PriorityHigh       Priority = 2
	PriorityMedium     Priority = 3
	PriorityLow        Priority = 4
	PriorityBackground Priority = 5
)

// Status is a task's position in its lifecycle state machine.
type Status string

const (
	StatusPending                Status = "PENDING"
	StatusWaitingForDependencies Status = "WAITING_FOR_DEPENDENCIES"
	StatusQueued                 Status = "QUEUED"
	StatusRunning                Status = "RUNNING"
	StatusPaused                 Status = "PAUSED"
	StatusCompleted              Status = "COMPLETED"
	StatusFailed                 Status = "FAILED"
	StatusCancelled              Status = "CANCELLED"
	StatusTimeout                Status = "TIMEOUT"
)

// IsTerminal reports whether s is one from which no further transition is
// allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout:
		return true
	default:
		return false
	}
}

// DefaultTimeout is the wall-clock deadline applied to a task when none is
// specified. Zero means no deadline.
const DefaultTimeout = 30 * time.Minute

// DefaultMaxRetries is the retry budget applied to a task when none is
// specified.
const DefaultMaxRetries = 3

// TaskContext carries the small amount of ambient state an executor
// strategy needs: where to run, what triggered the task, and who its
// parent is (for composite/sub-tasks).
type TaskContext struct {
	WorkingDirectory string
	Environment      map[string]string
	SessionID        string
	ParentTaskID     string
	TriggerSource    string
	Metadata         map[string]any
}

// TaskResult is attached to a task once it reaches a terminal status.
type TaskResult struct {
	Success         bool
	Output          string
	Error           string
	ExitCode        int
	ExecutionTimeMs int64
	FilesCreated    []string
	FilesModified   []string
	CommandsExecuted []string
	Artifacts       map[string]any
	Metrics         map[string]float64
}

// Task is a single unit of work: immutable identity plus a mutable
// status/result record. All state transitions go through the methods below
// so that the task state machine's transition rules cannot be violated by a caller poking fields directly in production code;
// tests are free to construct literals.
type Task struct {
	ID           string
	Kind         TaskKind
	Description  string
	Priority     Priority
	Status       Status
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	Timeout      time.Duration
	RetryCount   int
	MaxRetries   int
	Dependencies []string
	Parameters   map[string]any
	Context      TaskContext
	Result       *TaskResult
	ExecutionLog []string
}

// New allocates a task of the given kind with an id and createdAt already
// set. priority defaults to PriorityMedium when zero.
func New(kind TaskKind, priority Priority) *Task {
	if priority == 0 {
		priority = PriorityMedium
	}
	return &Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		Priority:   priority,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		Parameters: map[string]any{},
	}
}

// CanExecute reports whether the task is in a state the dispatcher may pop
// and run.
func (t *Task) CanExecute() bool {
	return t.Status == StatusPending || t.Status == StatusQueued
}

// ShouldRetry reports whether a failed task still has retry budget.
func (t *Task) ShouldRetry() bool {
	return t.Status == StatusFailed && t.RetryCount < t.MaxRetries
}

// IsTerminal reports whether the task has reached a terminal status.
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// transitionPanic signals a programmer error: an illegal state transition.
// These are never retried, matching spec.md's FatalInternal classification.
func transitionPanic(t *Task, to Status) {
	panic(fmt.Sprintf("agentcore: invalid transition for task %s: %s -> %s", t.ID, t.Status, to))
}

// MarkQueued transitions a pending or dependency-waiting task to QUEUED.
func (t *Task) MarkQueued() {
	if t.Status != StatusPending && t.Status != StatusQueued && t.Status != StatusWaitingForDependencies {
		transitionPanic(t, StatusQueued)
	}
	t.Status = StatusQueued
}

// MarkWaitingForDependencies transitions a freshly submitted task that has
// unmet dependencies.
func (t *Task) MarkWaitingForDependencies() {
	if t.Status != StatusPending {
		transitionPanic(t, StatusWaitingForDependencies)
	}
	t.Status = StatusWaitingForDependencies
}

// MarkStarted transitions a queued task to RUNNING and stamps StartedAt.
func (t *Task) MarkStarted() {
	if t.Status != StatusQueued {
		transitionPanic(t, StatusRunning)
	}
	t.Status = StatusRunning
	t.StartedAt = time.Now()
}

// MarkCompleted transitions a running task to COMPLETED, attaching result
// and stamping CompletedAt.
func (t *Task) MarkCompleted(result TaskResult) {
	if t.Status.IsTerminal() {
		transitionPanic(t, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.Result = &result
	t.CompletedAt = time.Now()
}

// MarkFailed transitions a running task to FAILED, recording errMsg and
// incrementing the retry counter. The task is not terminal in the sense of
// the state machine diagram that matters to a caller: ShouldRetry may still
// return true, in which case the dispatcher re-enqueues it.
func (t *Task) MarkFailed(errMsg string) {
	if t.Status.IsTerminal() {
		transitionPanic(t, StatusFailed)
	}
	t.Status = StatusFailed
	t.RetryCount++
	t.CompletedAt = time.Now()
	t.Result = &TaskResult{Success: false, Error: errMsg}
}

// MarkCancelled transitions any non-terminal task to CANCELLED.
func (t *Task) MarkCancelled() {
	if t.Status.IsTerminal() {
		transitionPanic(t, StatusCancelled)
	}
	t.Status = StatusCancelled
	t.CompletedAt = time.Now()
}

// MarkTimeout transitions a running task to TIMEOUT.
func (t *Task) MarkTimeout() {
	if t.Status.IsTerminal() {
		transitionPanic(t, StatusTimeout)
	}
	t.Status = StatusTimeout
	t.CompletedAt = time.Now()
	t.Result = &TaskResult{Success: false, Error: fmt.Sprintf("timed out after %s", t.Timeout)}
}

// MarkPaused transitions a queued task to PAUSED; ResumeFromPause restores
// it to QUEUED.
func (t *Task) MarkPaused() {
	if t.Status != StatusQueued && t.Status != StatusPending {
		transitionPanic(t, StatusPaused)
	}
	t.Status = StatusPaused
}

// ResumeFromPause transitions a paused task back to QUEUED.
func (t *Task) ResumeFromPause() {
	if t.Status != StatusPaused {
		transitionPanic(t, StatusQueued)
	}
	t.Status = StatusQueued
}

// AddLogEntry appends a timestamped narration line to the task's execution
// log.
func (t *Task) AddLogEntry(s string) {
	t.ExecutionLog = append(t.ExecutionLog, fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), s))
}
