// Package planner implements the ReAct Planner: it decomposes a
// natural-language goal into an ordered set of dependent subtasks via one
// language-model collaborator, then drives each subtask through a
// Reason -> Act -> Observe -> Reflect cycle, submitting synthesized tasks to
// the queue and waiting on their outcome.
//
// The planner never imports the queue package directly; it depends only on
// the narrow QueueClient seam below — grounded on the
// teacher's Invoker/claude.Invoker split, where the higher-level caller
// holds only the interface it needs from the CLI invocation layer.
package planner

import (
	"context"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
)

// MaxReactCycles bounds the Reason/Act/Observe/Reflect loop per subtask.
const MaxReactCycles = 5

// QueueClient is the slice of the Task Queue the planner depends on: submit
// a task and subscribe to its terminal result. internal/queue.Queue
// satisfies this directly.
type QueueClient interface {
	Submit(task *agentcore.Task) (string, error)
	Subscribe(taskID string) (<-chan *agentcore.Task, error)
}

// Narrator receives the planner's phase-by-phase narration, per spec.md's
// requirement that each phase be visible to an operator following the plan
// live.
type Narrator interface {
	Narrate(line string)
}

// PlanOutcome is the terminal result of ExecutePlan.
type PlanOutcome string

const (
	OutcomeSuccess PlanOutcome = "SUCCESS"
	OutcomeFailure PlanOutcome = "FAILURE"
)

// PlanResult reports how a plan's execution concluded.
type PlanResult struct {
	Outcome PlanOutcome
	Plan    *agentcore.Plan
}

// Planner turns goals into plans and drives their execution. The zero
// value is not usable; construct with New.
type Planner struct {
	model     llm.LanguageModel
	auth      llm.Auth
	queue     QueueClient
	narrator  Narrator
	maxCycles int
}

// Option configures a Planner at construction time.
type Option func(*Planner)

// WithMaxCycles overrides MaxReactCycles.
func WithMaxCycles(n int) Option {
	return func(p *Planner) { p.maxCycles = n }
}

// New constructs a Planner. narrator may be nil for silent operation.
func New(model llm.LanguageModel, auth llm.Auth, queue QueueClient, narrator Narrator, opts ...Option) *Planner {
	p := &Planner{
		model:     model,
		auth:      auth,
		queue:     queue,
		narrator:  narrator,
		maxCycles: MaxReactCycles,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) narrate(format string, args ...any) {
	if p.narrator != nil {
		p.narrator.Narrate(fmt.Sprintf(format, args...))
	}
}

func (p *Planner) requireAuth() error {
	if p.auth != nil && !p.auth.IsReady() {
		return agentcore.NewValidationError("auth", "language model backend is not authenticated")
	}
	return nil
}

// CreatePlan runs phases 1 (decomposition) and 2 (strategy) and returns the
// resulting Plan. ExecutePlan is a separate call so a caller can inspect or
// edit the plan before committing it to the queue.
func (p *Planner) CreatePlan(ctx context.Context, goal string) (*agentcore.Plan, error) {
	if err := p.requireAuth(); err != nil {
		return nil, err
	}
	if goal == "" {
		return nil, agentcore.NewValidationError("goal", "goal must not be empty")
	}

	plan := agentcore.NewPlan(goal)
	p.narrate("planner: decomposing goal: %s", goal)

	text, _, err := p.model.Ask(ctx, decompositionSystemPrompt, decompositionUserPrompt(goal), nil)
	if err != nil {
		return nil, agentcore.NewTaskError("", "decomposition call failed", err)
	}
	subtasks := parseSubtasks(text)
	if len(subtasks) == 0 {
		return nil, agentcore.NewTaskError("", "decomposition produced no parseable SUBTASK_N blocks", nil)
	}
	plan.Subtasks = subtasks
	p.narrate("planner: decomposed into %d subtasks", len(subtasks))

	p.narrate("planner: requesting execution strategy")
	strategy, _, err := p.model.Ask(ctx, strategySystemPrompt, strategyUserPrompt(plan), nil)
	if err != nil {
		return nil, agentcore.NewTaskError("", "strategy call failed", err)
	}
	plan.Strategy = strategy
	p.narrate("planner: strategy received (%d chars)", len(strategy))

	return plan, nil
}

// ExecutePlan runs phase 3 (ReAct cycles) across plan's subtasks in
// dependency-resolved order and reports the aggregate outcome.
func (p *Planner) ExecutePlan(ctx context.Context, plan *agentcore.Plan) (*PlanResult, error) {
	if err := p.requireAuth(); err != nil {
		return nil, err
	}

	order, err := dependencyOrder(plan.Subtasks)
	if err != nil {
		return nil, err
	}

	for _, idx := range order {
		p.runSubtask(ctx, plan, idx)
	}

	result := &PlanResult{Plan: plan, Outcome: OutcomeSuccess}
	if !plan.Succeeded() {
		result.Outcome = OutcomeFailure
	}
	return result, nil
}

// dependencyOrder returns subtask ordinal indices in an order where every
// subtask appears after all of its Dependencies, via a plain topological
// sort. No third-party graph library appears anywhere in the retrieved
// examples, so this stays on the standard library, mirroring the queue
// package's DFS cycle detector.
func dependencyOrder(subtasks []agentcore.Subtask) ([]int, error) {
	n := len(subtasks)
	visited := make([]int, n) // 0=unvisited, 1=visiting, 2=done
	var order []int

	var visit func(i int) error
	visit = func(i int) error {
		switch visited[i] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("planner: cyclic subtask dependency involving subtask %d", i+1)
		}
		visited[i] = 1
		for _, dep := range subtasks[i].Dependencies {
			if dep < 0 || dep >= n {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[i] = 2
		order = append(order, i)
		return nil
	}

	for i := range subtasks {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
