// Package queue implements the Task Queue & Dispatcher: a priority- and
// dependency-gated scheduler with bounded worker concurrency. Tasks arrive
// one at a time, dependency edges gate readiness, and failed tasks can
// re-enter the ready set after a backoff delay.
package queue

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/statestore"
	"github.com/harrison/agentcore/internal/strategy"
)

// DefaultMaxConcurrent is the worker pool size applied when the caller does
// not specify one.
const DefaultMaxConcurrent = 3

// DefaultDependencyCheckInterval is how often waiting tasks are re-examined
// for newly satisfied dependencies, independent of the promote-on-completion
// fast path.
const DefaultDependencyCheckInterval = 5 * time.Second

// DefaultCleanupInterval is how often the retention sweep runs.
const DefaultCleanupInterval = time.Hour

// DefaultRetention is how long a terminal task is kept after completion
// before Cleanup removes it.
const DefaultRetention = 30 * time.Minute

// MaxRetryBackoff caps the linear per-retry delay.
const MaxRetryBackoff = 60 * time.Second

// Logger receives narration of queue-level lifecycle events. The console and
// file loggers in internal/logger implement it; tests may substitute a
// recording stub.
type Logger interface {
	LogTaskStarted(task *agentcore.Task)
	LogTaskCompleted(task *agentcore.Task)
	LogTaskFailed(task *agentcore.Task, err error)
	LogTaskRetryScheduled(task *agentcore.Task, delay time.Duration)
}

// entry is one ready-queue slot. The heap orders by priority ascending
// (PriorityCritical=1 runs first), then by submission sequence so ties
// resolve FIFO. A retry receives a fresh sequence number on re-enqueue so it
// does not preserve its original queue position, per spec.
type entry struct {
	taskID   string
	priority agentcore.Priority
	seq      uint64
	index    int
}

type readyHeap []*entry

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *readyHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Stats is a point-in-time summary of the queue's contents.
type Stats struct {
	ByStatus           map[agentcore.Status]int
	PendingTasks       int // PENDING + QUEUED, reported together per spec
	RunningTasks       int
	TotalTasksExecuted int64
}

// Queue is the dependency-gated, priority-ordered task scheduler. The zero
// value is not usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	tasks   map[string]*agentcore.Task
	ready   readyHeap
	entries map[string]*entry // taskID -> its slot in ready, while queued
	running map[string]context.CancelFunc
	subs    map[string][]chan *agentcore.Task // taskID -> one-shot completion listeners
	seq     uint64
	paused  bool
	closed  bool

	maxConcurrent int
	registry      *strategy.Registry
	logger        Logger
	store         *statestore.Store

	dependencyCheckInterval time.Duration
	cleanupInterval         time.Duration
	retention               time.Duration

	wake   chan struct{} // buffered(1); signalled whenever the ready set may have grown
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithDependencyCheckInterval overrides DefaultDependencyCheckInterval.
func WithDependencyCheckInterval(d time.Duration) Option {
	return func(q *Queue) { q.dependencyCheckInterval = d }
}

// WithCleanupInterval overrides DefaultCleanupInterval.
func WithCleanupInterval(d time.Duration) Option {
	return func(q *Queue) { q.cleanupInterval = d }
}

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(q *Queue) { q.retention = d }
}

// New constructs a Queue. maxConcurrent <= 0 falls back to
// DefaultMaxConcurrent. logger and store may be nil.
func New(maxConcurrent int, registry *strategy.Registry, logger Logger, store *statestore.Store, opts ...Option) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if store == nil {
		store = statestore.New()
	}
	q := &Queue{
		tasks:                   make(map[string]*agentcore.Task),
		entries:                 make(map[string]*entry),
		running:                 make(map[string]context.CancelFunc),
		subs:                    make(map[string][]chan *agentcore.Task),
		maxConcurrent:           maxConcurrent,
		registry:                registry,
		logger:                  logger,
		store:                   store,
		dependencyCheckInterval: DefaultDependencyCheckInterval,
		cleanupInterval:         DefaultCleanupInterval,
		retention:               DefaultRetention,
		wake:                    make(chan struct{}, 1),
		stopCh:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) signalWake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Submit assigns an id if absent, validates the task, detects cyclic
// dependencies, and inserts it into the live index — QUEUED if every
// dependency is already COMPLETED, WAITING_FOR_DEPENDENCIES otherwise. It
// returns the task's id.
func (q *Queue) Submit(task *agentcore.Task) (string, error) {
	if task == nil {
		return "", agentcore.NewValidationError("task", "task must not be nil")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if !task.Kind.IsValid() {
		return "", agentcore.NewValidationError("kind", "unknown task kind")
	}
	if task.Description == "" {
		return "", agentcore.NewValidationError("description", "task description must not be empty")
	}
	if task.Priority == 0 {
		task.Priority = agentcore.PriorityMedium
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = agentcore.DefaultMaxRetries
	}
	if task.Timeout == 0 {
		task.Timeout = agentcore.DefaultTimeout
	}
	if task.Parameters == nil {
		task.Parameters = map[string]any{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", agentcore.ErrQueueClosed
	}
	if _, exists := q.tasks[task.ID]; exists {
		return "", agentcore.NewValidationError("id", "a task with this id is already submitted")
	}
	if q.hasCycleLocked(task) {
		return "", agentcore.NewDependencyUnmetError(task.ID, "", "cyclic task dependency")
	}

	q.tasks[task.ID] = task

	if q.allDependenciesCompleteLocked(task) {
		task.MarkQueued()
		q.pushReadyLocked(task)
	} else {
		task.MarkWaitingForDependencies()
	}

	q.publishCountsLocked()
	q.signalWake()
	return task.ID, nil
}

// hasCycleLocked reports whether task's dependency graph, as resolvable
// against tasks already in the live index, loops back to task itself. This
// is a plain depth-first search; no third-party graph library appears
// anywhere in the retrieved examples, so the standard library is the
// grounded choice here.
func (q *Queue) hasCycleLocked(task *agentcore.Task) bool {
	visited := make(map[string]bool)
	var dfs func(id string) bool
	dfs = func(id string) bool {
		if id == task.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		t, ok := q.tasks[id]
		if !ok {
			return false
		}
		for _, dep := range t.Dependencies {
			if dfs(dep) {
				return true
			}
		}
		return false
	}
	for _, dep := range task.Dependencies {
		if dfs(dep) {
			return true
		}
	}
	return false
}

// allDependenciesCompleteLocked reports whether every dependency id of task
// refers to a live task already in COMPLETED status. An id with no matching
// live task counts as unmet: the dependency may be submitted later.
func (q *Queue) allDependenciesCompleteLocked(task *agentcore.Task) bool {
	for _, dep := range task.Dependencies {
		t, ok := q.tasks[dep]
		if !ok || t.Status != agentcore.StatusCompleted {
			return false
		}
	}
	return true
}

func (q *Queue) pushReadyLocked(task *agentcore.Task) {
	q.seq++
	e := &entry{taskID: task.ID, priority: task.Priority, seq: q.seq}
	q.entries[task.ID] = e
	heap.Push(&q.ready, e)
}

func (q *Queue) removeFromReadyLocked(taskID string) {
	e, ok := q.entries[taskID]
	if !ok {
		return
	}
	heap.Remove(&q.ready, e.index)
	delete(q.entries, taskID)
}

// publishCountsLocked mirrors task_count/queued_task_count into the shared
// state store so the agent façade's Status() can report them without
// re-deriving from the queue's internal lock.
func (q *Queue) publishCountsLocked() {
	pending := 0
	for _, t := range q.tasks {
		if t.Status == agentcore.StatusPending || t.Status == agentcore.StatusQueued {
			pending++
		}
	}
	q.store.Set("task_count", len(q.tasks))
	q.store.Set("queued_task_count", pending)
}

// Get returns the live task record for id.
func (q *Queue) Get(id string) (*agentcore.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	return t, ok
}

// List returns every task currently tracked by the queue, most recently
// submitted first. The CLI's agent-tasks command filters/limits the result;
// the queue itself keeps no separate index for that.
func (q *Queue) List() []*agentcore.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*agentcore.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Subscribe returns a one-shot channel that receives task's final record the
// moment it reaches a terminal status, then is closed. If the task is
// already terminal, the channel is pre-loaded and closed immediately. This
// is the "submit + subscribe-to-completion" seam the planner depends on
// instead of importing the full Queue, per the cyclic-dependency note on
// Planner/Queue coupling.
func (q *Queue) Subscribe(taskID string) (<-chan *agentcore.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan *agentcore.Task, 1)
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, agentcore.ErrTaskNotFound
	}
	if task.IsTerminal() {
		ch <- task
		close(ch)
		return ch, nil
	}
	q.subs[taskID] = append(q.subs[taskID], ch)
	return ch, nil
}

// notifyCompletionLocked delivers task to every pending subscriber and
// clears its subscriber list. Must be called with q.mu held, immediately
// after task transitions into a terminal status.
func (q *Queue) notifyCompletionLocked(task *agentcore.Task) {
	for _, ch := range q.subs[task.ID] {
		ch <- task
		close(ch)
	}
	delete(q.subs, task.ID)
}

// Stats aggregates the current status distribution.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	byStatus := make(map[agentcore.Status]int)
	pending := 0
	running := 0
	for _, t := range q.tasks {
		byStatus[t.Status]++
		if t.Status == agentcore.StatusPending || t.Status == agentcore.StatusQueued {
			pending++
		}
		if t.Status == agentcore.StatusRunning {
			running++
		}
	}
	return Stats{
		ByStatus:           byStatus,
		PendingTasks:       pending,
		RunningTasks:       running,
		TotalTasksExecuted: q.store.TotalTasksExecuted(),
	}
}

// Cancel cancels task id. A RUNNING task is interrupted cooperatively via
// its context; a PENDING/QUEUED/WAITING_FOR_DEPENDENCIES/PAUSED task is
// removed directly. A terminal task is a no-op and returns false.
func (q *Queue) Cancel(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[id]
	if !ok {
		return false, agentcore.ErrTaskNotFound
	}
	if task.IsTerminal() {
		return false, nil
	}

	switch task.Status {
	case agentcore.StatusRunning:
		if cancel, ok := q.running[id]; ok {
			cancel()
		}
	default:
		q.removeFromReadyLocked(id)
	}
	task.MarkCancelled()
	q.notifyCompletionLocked(task)
	q.publishCountsLocked()
	return true, nil
}

// Pause stops new tasks from being popped off the ready set; tasks already
// RUNNING continue to completion.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
}

// Resume clears the pause gate set by Pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.signalWake()
}

// ClearCompleted removes every terminal task from the live index
// unconditionally, regardless of age. It backs the CLI's agent-clear
// command.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sweepLocked(time.Time{})
}

// Cleanup removes terminal tasks whose CompletedAt is older than the
// configured retention window. It is the periodic sweep Start schedules
// hourly by default.
func (q *Queue) Cleanup() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sweepLocked(time.Now().Add(-q.retention))
}

// sweepLocked removes terminal tasks whose CompletedAt is strictly before
// cutoff. A task completed exactly at cutoff is retained. A zero cutoff
// removes every terminal task.
func (q *Queue) sweepLocked(cutoff time.Time) int {
	removed := 0
	for id, t := range q.tasks {
		if !t.IsTerminal() {
			continue
		}
		if cutoff.IsZero() || t.CompletedAt.Before(cutoff) {
			delete(q.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		q.publishCountsLocked()
	}
	return removed
}

// Close signals every worker and background goroutine started by Start to
// stop and waits for them to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.stopCh)
	q.wg.Wait()
}
