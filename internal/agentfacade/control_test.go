package agentfacade

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/agentcore/internal/config"
	"github.com/harrison/agentcore/internal/control"
	"github.com/harrison/agentcore/internal/llm"
	"github.com/harrison/agentcore/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlHandlersSubmitAndListTasks(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	srv, err := control.Listen(socketPath)
	require.NoError(t, err)
	a.RegisterControlHandlers(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	var submitOut map[string]string
	err = control.Call(socketPath, "submitTask", SubmitTaskParams{
		Kind:        "SHELL_COMMAND",
		Description: "say hi",
		Command:     "true",
		Priority:    3,
	}, &submitOut)
	require.NoError(t, err)
	id := submitOut["taskId"]
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		got, ok := a.Task(id)
		return ok && got.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	var listOut []map[string]any
	err = control.Call(socketPath, "listTasks", ListTasksParams{Limit: 10}, &listOut)
	require.NoError(t, err)
	assert.NotEmpty(t, listOut)
}

// stubModel is a minimal llm.LanguageModel that always succeeds a ReAct
// cycle on the first pass, regardless of prompt content.
type stubModel struct{}

func (stubModel) Ask(ctx context.Context, system, user string, history []llm.Message) (string, llm.Usage, error) {
	switch {
	case strings.Contains(system, "acting"):
		return "ACTION_TYPE: SYSTEM\nACTION_DESCRIPTION: noop", llm.Usage{}, nil
	case strings.Contains(system, "reflect"):
		return "SUCCEEDED: YES", llm.Usage{}, nil
	default:
		return "reasoning about the next step", llm.Usage{}, nil
	}
}

func TestControlHandlersRunPlanFromMarkdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Agent.MaxConcurrent = 2
	logger := &recordingLogger{}
	a := New(cfg, logger, stubModel{}, nil, nil)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	srv, err := control.Listen(socketPath)
	require.NoError(t, err)
	a.RegisterControlHandlers(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	var result planner.PlanResult
	err = control.Call(socketPath, "runPlan", RunPlanParams{
		Markdown: "# Ship it\n\n- [ ] do the one thing\n",
	}, &result)
	require.NoError(t, err)
	assert.Equal(t, planner.OutcomeSuccess, result.Outcome)
}

func TestControlHandlersStatus(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop()

	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	srv, err := control.Listen(socketPath)
	require.NoError(t, err)
	a.RegisterControlHandlers(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	defer srv.Close()
	time.Sleep(20 * time.Millisecond)

	var out map[string]any
	err = control.Call(socketPath, "status", nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out, "Queue")
}
