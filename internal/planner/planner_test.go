package planner

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns canned responses keyed by a substring match against
// the system prompt, so a test can script one answer per ReAct phase
// without needing a real LM backend.
type scriptedModel struct {
	mu        sync.Mutex
	responses map[string]string
	calls     int
}

func (m *scriptedModel) Ask(ctx context.Context, system, user string, history []llm.Message) (string, llm.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for key, resp := range m.responses {
		if strings.Contains(system, key) {
			return resp, llm.Usage{}, nil
		}
	}
	return "", llm.Usage{}, nil
}

type alwaysReady struct{}

func (alwaysReady) IsReady() bool { return true }

// fakeQueue completes every submitted task immediately with a successful
// result, so ReAct cycles can run synchronously in tests.
type fakeQueue struct {
	mu    sync.Mutex
	tasks map[string]*agentcore.Task
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{tasks: map[string]*agentcore.Task{}}
}

func (q *fakeQueue) Submit(task *agentcore.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.MarkQueued()
	task.MarkStarted()
	task.MarkCompleted(agentcore.TaskResult{Success: true, Output: "done"})
	q.tasks[task.ID] = task
	return task.ID, nil
}

func (q *fakeQueue) Subscribe(taskID string) (<-chan *agentcore.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, agentcore.ErrTaskNotFound
	}
	ch := make(chan *agentcore.Task, 1)
	ch <- task
	close(ch)
	return ch, nil
}

const sampleDecomposition = `
SUBTASK_1:
Description: write the hello world file
Expected Outcome: file exists
Priority: high
Complexity: low
Dependencies: none
File Path: hello.txt
File Content: hello world
Commands: none

SUBTASK_2:
Description: run the hello world file
Expected Outcome: command succeeds
Priority: medium
Complexity: low
Dependencies: 1
Commands: cat hello.txt
`

func newTestPlanner(model llm.LanguageModel, queue QueueClient) *Planner {
	return New(model, alwaysReady{}, queue, nil)
}

func TestCreatePlanParsesSubtasks(t *testing.T) {
	model := &scriptedModel{responses: map[string]string{
		"planning assistant for an autonomous": sampleDecomposition,
		"decomposed plan":                      "run subtask 1 then subtask 2; risk: none",
	}}
	p := newTestPlanner(model, newFakeQueue())

	plan, err := p.CreatePlan(t.Context(), "say hello")
	require.NoError(t, err)
	require.Len(t, plan.Subtasks, 2)
	assert.Equal(t, "write the hello world file", plan.Subtasks[0].Description)
	assert.Equal(t, agentcore.PriorityHigh, plan.Subtasks[0].Priority)
	assert.Equal(t, "hello.txt", plan.Subtasks[0].FilePath)
	assert.Equal(t, []int{0}, plan.Subtasks[1].Dependencies)
	assert.NotEmpty(t, plan.Strategy)
}

func TestCreatePlanRejectsEmptyGoal(t *testing.T) {
	p := newTestPlanner(&scriptedModel{}, newFakeQueue())
	_, err := p.CreatePlan(t.Context(), "")
	require.Error(t, err)
	assert.True(t, agentcore.IsValidationError(err))
}

func TestExecutePlanSucceedsWhenReflectionSaysYes(t *testing.T) {
	model := &scriptedModel{responses: map[string]string{
		"reasoning phase":      "do the thing",
		"acting phase":         "ACTION_TYPE: SHELL_COMMAND\nACTION_DESCRIPTION: run it\nPARAMETERS: command=echo hi\nEXPECTED_OUTCOME: prints hi",
		"observation phase":    "it printed hi",
		"self-reflection phase": "SUCCEEDED: YES\nREASONING: it worked\nMEMORY_UPDATES: last_output=hi",
	}}
	queue := newFakeQueue()
	p := newTestPlanner(model, queue)

	plan := agentcore.NewPlan("say hi")
	plan.Subtasks = []agentcore.Subtask{{Description: "print hi", Priority: agentcore.PriorityMedium}}

	result, err := p.ExecutePlan(t.Context(), plan)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, agentcore.StatusCompleted, plan.Subtasks[0].Status)
	assert.Equal(t, "hi", plan.WorkingMemory["last_output"])
}

func TestExecutePlanFailsAfterMaxCyclesWhenReflectionSaysNo(t *testing.T) {
	model := &scriptedModel{responses: map[string]string{
		"reasoning phase":       "do the thing",
		"acting phase":          "ACTION_TYPE: SHELL_COMMAND\nACTION_DESCRIPTION: run it\nPARAMETERS: command=echo hi\nEXPECTED_OUTCOME: prints hi",
		"observation phase":     "it printed hi",
		"self-reflection phase": "SUCCEEDED: NO\nREASONING: still not right\nMEMORY_UPDATES: none",
	}}
	queue := newFakeQueue()
	p := New(model, alwaysReady{}, queue, nil, WithMaxCycles(2))

	plan := agentcore.NewPlan("say hi")
	plan.Subtasks = []agentcore.Subtask{{Description: "print hi", Priority: agentcore.PriorityMedium}}

	result, err := p.ExecutePlan(t.Context(), plan)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, agentcore.StatusFailed, plan.Subtasks[0].Status)
}

func TestExecutePlanRespectsDependencyOrder(t *testing.T) {
	var order []string
	model := &scriptedModel{responses: map[string]string{
		"acting phase":          "ACTION_TYPE: SHELL_COMMAND\nPARAMETERS: command=echo step\nEXPECTED_OUTCOME: ok",
		"observation phase":     "ok",
		"self-reflection phase": "SUCCEEDED: YES\nREASONING: ok\nMEMORY_UPDATES: none",
	}}
	queue := &orderTrackingQueue{fakeQueue: newFakeQueue(), order: &order}
	p := newTestPlanner(model, queue)

	plan := agentcore.NewPlan("multi-step")
	plan.Subtasks = []agentcore.Subtask{
		{Description: "second", Priority: agentcore.PriorityMedium, Dependencies: []int{1}},
		{Description: "first", Priority: agentcore.PriorityMedium},
	}

	_, err := p.ExecutePlan(t.Context(), plan)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "first", order[0])
	assert.Equal(t, "second", order[1])
}

type orderTrackingQueue struct {
	*fakeQueue
	order *[]string
}

func (q *orderTrackingQueue) Submit(task *agentcore.Task) (string, error) {
	*q.order = append(*q.order, task.Description)
	return q.fakeQueue.Submit(task)
}
