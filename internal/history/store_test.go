package history

import (
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func completedTask() *agentcore.Task {
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Description = "echo hi"
	task.MarkQueued()
	task.MarkStarted()
	task.MarkCompleted(agentcore.TaskResult{Success: true, Output: "hi", ExitCode: 0})
	return task
}

func TestRecordAndGetExecutions(t *testing.T) {
	store := newTestStore(t)
	task := completedTask()

	require.NoError(t, store.RecordTask(t.Context(), task))

	execs, err := store.GetExecutions(t.Context(), task.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, task.ID, execs[0].TaskID)
	assert.Equal(t, "echo hi", execs[0].Description)
	assert.True(t, execs[0].Success)
	assert.Equal(t, "hi", execs[0].Output)
}

func TestGetExecutionsOnlyReturnsMatchingTask(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RecordTask(t.Context(), completedTask()))
	require.NoError(t, store.RecordTask(t.Context(), completedTask()))

	other := completedTask()
	require.NoError(t, store.RecordTask(t.Context(), other))

	execs, err := store.GetExecutions(t.Context(), other.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, other.ID, execs[0].TaskID)
}

func TestGetRecentOrdersMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	first := completedTask()
	second := completedTask()
	require.NoError(t, store.RecordTask(t.Context(), first))
	require.NoError(t, store.RecordTask(t.Context(), second))

	recent, err := store.GetRecent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].TaskID)
	assert.Equal(t, first.ID, recent[1].TaskID)
}

func TestGetRecentRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordTask(t.Context(), completedTask()))
	}

	recent, err := store.GetRecent(t.Context(), 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestClearRemovesAllExecutions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RecordTask(t.Context(), completedTask()))

	require.NoError(t, store.Clear(t.Context()))

	recent, err := store.GetRecent(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecordFailedTaskPersistsError(t *testing.T) {
	store := newTestStore(t)
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.MarkQueued()
	task.MarkStarted()
	task.MarkFailed("boom")

	require.NoError(t, store.RecordTask(t.Context(), task))

	execs, err := store.GetExecutions(t.Context(), task.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.False(t, execs[0].Success)
	assert.Equal(t, "boom", execs[0].ErrorMessage)
}
