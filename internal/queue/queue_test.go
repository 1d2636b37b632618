package queue

import (
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	registry := strategy.BuildDefaultRegistry(strategy.Dependencies{})
	return New(2, registry, nil, nil)
}

func shellTask(description, command string) *agentcore.Task {
	t := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	t.Description = description
	t.Parameters["command"] = command
	return t
}

func TestSubmitQueuesTaskWithNoDependencies(t *testing.T) {
	q := newTestQueue()
	id, err := q.Submit(shellTask("echo", "echo hello"))
	require.NoError(t, err)

	task, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, agentcore.StatusQueued, task.Status)
}

func TestSubmitWithUnmetDependencyWaits(t *testing.T) {
	q := newTestQueue()
	child := shellTask("child", "echo hi")
	child.Dependencies = []string{"does-not-exist-yet"}

	id, err := q.Submit(child)
	require.NoError(t, err)

	task, _ := q.Get(id)
	assert.Equal(t, agentcore.StatusWaitingForDependencies, task.Status)
}

func TestSubmitRejectsEmptyDescription(t *testing.T) {
	q := newTestQueue()
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters["command"] = "echo hi"

	_, err := q.Submit(task)
	require.Error(t, err)
	assert.True(t, agentcore.IsValidationError(err))
}

func TestSubmitDetectsCyclicDependency(t *testing.T) {
	q := newTestQueue()

	// A pre-assigned id that depends on itself is the simplest cycle the
	// detector can walk into, since the new task is not yet in the live
	// index while Submit resolves its dependency graph.
	self := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	self.Description = "self"
	self.Parameters["command"] = "echo self"
	self.Dependencies = []string{self.ID}

	_, err := q.Submit(self)
	require.Error(t, err)
	var depErr *agentcore.DependencyUnmetError
	assert.ErrorAs(t, err, &depErr)
}

func TestSubmitAcceptsTaskDependingOnForeignCycle(t *testing.T) {
	q := newTestQueue()

	a := shellTask("a", "echo a")
	idA, err := q.Submit(a)
	require.NoError(t, err)

	// b depends on a, and a is then mutated to depend on b: a -> b -> a.
	b := shellTask("b", "echo b")
	b.Dependencies = []string{idA}
	idB, err := q.Submit(b)
	require.NoError(t, err)
	a.Dependencies = []string{idB}

	// A fresh task depending on a now walks a -> b -> a and must terminate
	// without ever reaching its own id.
	c := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	c.Description = "c"
	c.Parameters["command"] = "echo c"
	c.Dependencies = []string{idA}
	// A cycle that doesn't loop back to c itself is not c's cycle to
	// reject; submitting c should succeed and simply wait forever on a's
	// (now cyclic) dependency.
	_, err = q.Submit(c)
	require.NoError(t, err)
}

func TestReadyHeapOrdersByPriorityThenSequence(t *testing.T) {
	q := newTestQueue()

	low, err := q.Submit(withPriority(shellTask("low", "echo low"), agentcore.PriorityLow))
	require.NoError(t, err)
	critical, err := q.Submit(withPriority(shellTask("critical", "echo critical"), agentcore.PriorityCritical))
	require.NoError(t, err)
	medium, err := q.Submit(withPriority(shellTask("medium", "echo medium"), agentcore.PriorityMedium))
	require.NoError(t, err)

	first, ok := q.popReady()
	require.True(t, ok)
	assert.Equal(t, critical, first.ID)

	second, ok := q.popReady()
	require.True(t, ok)
	assert.Equal(t, medium, second.ID)

	third, ok := q.popReady()
	require.True(t, ok)
	assert.Equal(t, low, third.ID)
}

func withPriority(t *agentcore.Task, p agentcore.Priority) *agentcore.Task {
	t.Priority = p
	return t
}

func TestCancelQueuedTaskRemovesItFromReady(t *testing.T) {
	q := newTestQueue()
	id, err := q.Submit(shellTask("sleep", "sleep 5"))
	require.NoError(t, err)

	ok, err := q.Cancel(id)
	require.NoError(t, err)
	assert.True(t, ok)

	task, _ := q.Get(id)
	assert.Equal(t, agentcore.StatusCancelled, task.Status)

	_, popped := q.popReady()
	assert.False(t, popped)
}

func TestCancelTerminalTaskIsNoop(t *testing.T) {
	q := newTestQueue()
	task := shellTask("done", "echo hi")
	task.MarkQueued()
	task.MarkStarted()
	task.MarkCompleted(agentcore.TaskResult{Success: true})
	q.tasks[task.ID] = task

	ok, err := q.Cancel(task.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearCompletedRemovesTerminalTasksOnly(t *testing.T) {
	q := newTestQueue()
	running := shellTask("running", "echo running")
	running.MarkQueued()
	q.tasks[running.ID] = running

	done := shellTask("done", "echo done")
	done.MarkQueued()
	done.MarkStarted()
	done.MarkCompleted(agentcore.TaskResult{Success: true})
	q.tasks[done.ID] = done

	removed := q.ClearCompleted()
	assert.Equal(t, 1, removed)

	_, ok := q.Get(done.ID)
	assert.False(t, ok)
	_, ok = q.Get(running.ID)
	assert.True(t, ok)
}

func TestSweepRetainsTaskExactlyAtRetentionBoundary(t *testing.T) {
	q := newTestQueue()
	cutoff := time.Now()

	atBoundary := shellTask("at-boundary", "echo boundary")
	atBoundary.MarkQueued()
	atBoundary.MarkStarted()
	atBoundary.MarkCompleted(agentcore.TaskResult{Success: true})
	atBoundary.CompletedAt = cutoff
	q.tasks[atBoundary.ID] = atBoundary

	pastBoundary := shellTask("past-boundary", "echo past")
	pastBoundary.MarkQueued()
	pastBoundary.MarkStarted()
	pastBoundary.MarkCompleted(agentcore.TaskResult{Success: true})
	pastBoundary.CompletedAt = cutoff.Add(-time.Nanosecond)
	q.tasks[pastBoundary.ID] = pastBoundary

	q.mu.Lock()
	removed := q.sweepLocked(cutoff)
	q.mu.Unlock()

	assert.Equal(t, 1, removed)
	_, ok := q.Get(atBoundary.ID)
	assert.True(t, ok, "task completed exactly at the cutoff must be retained")
	_, ok = q.Get(pastBoundary.ID)
	assert.False(t, ok, "task completed before the cutoff must be removed")
}

func TestRetryBackoffCapsAtSixtySeconds(t *testing.T) {
	assert.Equal(t, MaxRetryBackoff, retryBackoff(10))
	assert.Less(t, retryBackoff(1), MaxRetryBackoff)
}

func TestSubscribeDeliversAlreadyTerminalTaskImmediately(t *testing.T) {
	q := newTestQueue()
	task := shellTask("done", "echo hi")
	task.MarkQueued()
	task.MarkStarted()
	task.MarkCompleted(agentcore.TaskResult{Success: true})
	q.tasks[task.ID] = task

	ch, err := q.Subscribe(task.ID)
	require.NoError(t, err)
	got, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, agentcore.StatusCompleted, got.Status)
	_, stillOpen := <-ch
	assert.False(t, stillOpen)
}

func TestSubscribeUnknownTaskErrors(t *testing.T) {
	q := newTestQueue()
	_, err := q.Subscribe("nope")
	assert.ErrorIs(t, err, agentcore.ErrTaskNotFound)
}

func TestSubscribeNotifiedOnCancel(t *testing.T) {
	q := newTestQueue()
	id, err := q.Submit(shellTask("sleep", "sleep 5"))
	require.NoError(t, err)

	ch, err := q.Subscribe(id)
	require.NoError(t, err)

	ok, err := q.Cancel(id)
	require.NoError(t, err)
	require.True(t, ok)

	got, open := <-ch
	require.True(t, open)
	assert.Equal(t, agentcore.StatusCancelled, got.Status)
}
