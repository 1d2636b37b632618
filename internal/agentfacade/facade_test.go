package agentfacade

import (
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/config"
	"github.com/harrison/agentcore/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger satisfies the Logger interface without printing
// anything, recording narration lines for assertions.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Narrate(line string)                               { l.lines = append(l.lines, line) }
func (l *recordingLogger) LogTaskStarted(task *agentcore.Task)               {}
func (l *recordingLogger) LogTaskCompleted(task *agentcore.Task)             {}
func (l *recordingLogger) LogTaskFailed(task *agentcore.Task, err error)     {}
func (l *recordingLogger) LogTaskRetryScheduled(*agentcore.Task, time.Duration) {}

func newTestAgent(t *testing.T) (*Agent, *recordingLogger) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Agent.MaxConcurrent = 2
	logger := &recordingLogger{}
	a := New(cfg, logger, nil, nil, nil)
	return a, logger
}

func TestAgentStartSubmitStop(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters = map[string]any{"command": "true"}
	id, err := a.SubmitTask(task)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		got, ok := a.Task(id)
		return ok && got.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentStartTwiceErrors(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	err := a.Start(t.Context())
	assert.Error(t, err)
}

func TestAgentPlanWithoutModelErrors(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	_, err := a.Plan(t.Context(), "do something")
	assert.Error(t, err)
}

func TestAgentStatusReportsQueueStats(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	status := a.Status()
	assert.NotNil(t, status.Queue.ByStatus)
}

func TestAgentRecordsHistoryOnCompletion(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := &recordingLogger{}
	store, err := history.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	a := New(cfg, logger, nil, nil, store)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters = map[string]any{"command": "true"}
	id, err := a.SubmitTask(task)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		execs, err := store.GetExecutions(t.Context(), id)
		return err == nil && len(execs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
