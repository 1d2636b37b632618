package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []*agentcore.Task
}

func (r *recordingSubmitter) Submit(task *agentcore.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return task.ID, nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *recordingSubmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.tasks))
	for i, t := range r.tasks {
		names[i] = t.Context.TriggerSource
	}
	return names
}

type discardNarrator struct{}

func (discardNarrator) Narrate(string) {}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition never became true within %s", timeout)
}

func TestMonitorFileChangeTriggerFires(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})

	triggers := []agentcore.Trigger{
		{Name: "config-change", Type: agentcore.TriggerFileChange, Path: dir, Pattern: `\.txt$`, Action: agentcore.KindFileRead},
	}
	require.NoError(t, m.Start(t.Context(), triggers))
	defer m.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hi"), 0o644))

	eventually(t, 2*time.Second, func() bool { return sub.count() > 0 })
	assert.Contains(t, sub.names(), "config-change")
}

func TestMonitorFileChangeIgnoresNonMatchingPattern(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})

	triggers := []agentcore.Trigger{
		{Name: "txt-only", Type: agentcore.TriggerFileChange, Path: dir, Pattern: `\.txt$`, Action: agentcore.KindFileRead},
	}
	require.NoError(t, m.Start(t.Context(), triggers))
	defer m.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.log"), []byte("hi"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, sub.count())
}

func TestMonitorIntervalTriggerFiresRepeatedly(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})

	triggers := []agentcore.Trigger{
		{Name: "poll", Type: agentcore.TriggerInterval, Interval: "30ms", Action: agentcore.KindSystemMonitoring},
	}
	require.NoError(t, m.Start(t.Context(), triggers))
	defer m.Stop()

	eventually(t, 2*time.Second, func() bool { return sub.count() >= 2 })
}

func TestMonitorScheduledTriggerFires(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})

	triggers := []agentcore.Trigger{
		{Name: "cron-job", Type: agentcore.TriggerScheduled, Schedule: "@every 50ms", Action: agentcore.KindSystem},
	}
	require.NoError(t, m.Start(t.Context(), triggers))
	defer m.Stop()

	eventually(t, 2*time.Second, func() bool { return sub.count() >= 1 })
	assert.Contains(t, sub.names(), "cron-job")
}

func TestMonitorBuiltinsFireOnShortenedDelay(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{}, WithShutdownTimeout(time.Second))
	// Built-in delays are package constants, not overridable per-instance; this
	// test only asserts Start/Stop don't block or panic with zero triggers.
	require.NoError(t, m.Start(t.Context(), nil))
	m.Stop()
}

func TestMonitorRejectsDoubleStart(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})
	require.NoError(t, m.Start(t.Context(), nil))
	defer m.Stop()
	assert.Error(t, m.Start(t.Context(), nil))
}

func TestMonitorUnknownTriggerTypeIsSkippedNotFatal(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})
	triggers := []agentcore.Trigger{
		{Name: "mystery", Type: agentcore.TriggerType("unknown"), Action: agentcore.KindSystem},
	}
	require.NoError(t, m.Start(t.Context(), triggers))
	defer m.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, sub.count())
}

func TestMonitorFireSetsContextMetadata(t *testing.T) {
	sub := &recordingSubmitter{}
	m := New(sub, discardNarrator{})
	trigger := agentcore.Trigger{
		Name:    "disk-check",
		Type:    agentcore.TriggerInterval,
		Action:  agentcore.KindSystemMonitoring,
		Command: "df -h",
	}

	m.fire(trigger, "disk usage above threshold")

	require.Equal(t, 1, sub.count())
	task := sub.tasks[0]
	assert.Equal(t, "disk-check", task.Context.Metadata["trigger"])
	assert.Equal(t, string(agentcore.TriggerInterval), task.Context.Metadata["trigger_type"])
	assert.Equal(t, "disk usage above threshold", task.Context.Metadata["context"])
	assert.Equal(t, "df -h", task.Context.Metadata["command"])
	assert.NotNil(t, task.Context.Metadata["timestamp"])
	assert.Equal(t, "disk-check", task.Context.TriggerSource)
}
