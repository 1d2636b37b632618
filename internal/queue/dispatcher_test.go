package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestDispatcherRunsQueuedTaskToCompletion(t *testing.T) {
	registry := strategy.BuildDefaultRegistry(strategy.Dependencies{})
	q := New(2, registry, nil, nil, WithDependencyCheckInterval(20*time.Millisecond))
	q.Start(context.Background())
	defer q.Close()

	id, err := q.Submit(shellTask("echo", "echo hello"))
	require.NoError(t, err)

	eventually(t, 2*time.Second, func() bool {
		task, _ := q.Get(id)
		return task.Status == agentcore.StatusCompleted
	})

	task, _ := q.Get(id)
	assert.True(t, task.Result.Success)
	assert.Contains(t, task.Result.Output, "hello")
	assert.EqualValues(t, 1, q.Stats().TotalTasksExecuted)
}

func TestDispatcherPromotesWaitingDependentOnCompletion(t *testing.T) {
	registry := strategy.BuildDefaultRegistry(strategy.Dependencies{})
	q := New(1, registry, nil, nil, WithDependencyCheckInterval(20*time.Millisecond))
	q.Start(context.Background())
	defer q.Close()

	parentID, err := q.Submit(shellTask("parent", "echo parent"))
	require.NoError(t, err)

	child := shellTask("child", "echo child")
	child.Dependencies = []string{parentID}
	childID, err := q.Submit(child)
	require.NoError(t, err)

	task, _ := q.Get(childID)
	assert.Equal(t, agentcore.StatusWaitingForDependencies, task.Status)

	eventually(t, 2*time.Second, func() bool {
		task, _ := q.Get(childID)
		return task.Status == agentcore.StatusCompleted
	})
}

func TestDispatcherRetriesFailedTaskThenGivesUp(t *testing.T) {
	registry := strategy.BuildDefaultRegistry(strategy.Dependencies{})
	var attempts int
	custom := strategy.NewCustomStrategy(nil)
	custom.RegisterHandler("always-fails", func(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
		attempts++
		return agentcore.TaskResult{}, errors.New("transient backend failure")
	})
	registry.Register(agentcore.KindCustom, custom)

	q := New(1, registry, nil, nil, WithDependencyCheckInterval(20*time.Millisecond))
	q.Start(context.Background())
	defer q.Close()

	task := agentcore.New(agentcore.KindCustom, agentcore.PriorityMedium)
	task.Description = "fails"
	task.Parameters["action_class"] = "always-fails"
	task.MaxRetries = 2
	id, err := q.Submit(task)
	require.NoError(t, err)

	eventually(t, 45*time.Second, func() bool {
		task, _ := q.Get(id)
		return task.IsTerminal() && !task.ShouldRetry()
	})

	final, _ := q.Get(id)
	assert.Equal(t, agentcore.StatusFailed, final.Status)
	assert.False(t, final.ShouldRetry())
	assert.GreaterOrEqual(t, attempts, 3)
}

func TestDispatcherCancelInterruptsRunningTask(t *testing.T) {
	registry := strategy.BuildDefaultRegistry(strategy.Dependencies{})
	q := New(1, registry, nil, nil)
	q.Start(context.Background())
	defer q.Close()

	id, err := q.Submit(shellTask("sleep", "sleep 30"))
	require.NoError(t, err)

	eventually(t, time.Second, func() bool {
		task, _ := q.Get(id)
		return task.Status == agentcore.StatusRunning
	})

	ok, err := q.Cancel(id)
	require.NoError(t, err)
	assert.True(t, ok)

	task, _ := q.Get(id)
	assert.Equal(t, agentcore.StatusCancelled, task.Status)
}
