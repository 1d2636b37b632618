// Package agentfacade wires the Task Queue/Executor, Remote Tool Manager,
// Continuous Monitor, and ReAct Planner into one runnable agent, composing
// loggers, config, and the executor into a single running process.
package agentfacade

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/config"
	"github.com/harrison/agentcore/internal/history"
	"github.com/harrison/agentcore/internal/llm"
	"github.com/harrison/agentcore/internal/monitor"
	"github.com/harrison/agentcore/internal/planner"
	"github.com/harrison/agentcore/internal/queue"
	"github.com/harrison/agentcore/internal/rpc"
	"github.com/harrison/agentcore/internal/statestore"
	"github.com/harrison/agentcore/internal/strategy"
)

// Logger is the union of everything the façade's collaborators need to
// narrate and log, satisfied by internal/logger.ConsoleLogger and
// internal/logger.FileLogger.
type Logger interface {
	queue.Logger
	strategy.Narrator
}

// Agent composes the Task Queue, the Remote Tool Manager, the Continuous
// Monitor, and the ReAct Planner into a single runnable unit. Start/Stop
// bound its lifetime; SubmitTask and Status are the synchronous surface a
// CLI command or test drives directly.
type Agent struct {
	cfg     *config.Config
	logger  Logger
	queue   *queue.Queue
	manager *rpc.Manager
	monitor *monitor.Monitor
	planner *planner.Planner
	history *history.Store

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// healthAdapter implements strategy.HealthChecker over an *rpc.Manager.
type healthAdapter struct{ manager *rpc.Manager }

func (h healthAdapter) RemoteServerStatus() map[string]bool {
	status := map[string]bool{}
	for _, srv := range h.manager.GetServerStatus() {
		status[srv.ID] = srv.Initialized
	}
	return status
}

// New assembles an Agent from cfg. model/auth may be nil, which disables
// the AI-backed task kinds and the planner. historyStore may be nil, which
// disables execution-history persistence.
func New(cfg *config.Config, logger Logger, model llm.LanguageModel, auth llm.Auth, historyStore *history.Store) *Agent {
	manager := rpc.NewManager()

	deps := strategy.Dependencies{
		Narrator: logger,
		Model:    model,
		Auth:     auth,
		Caller:   manager,
		Admin:    manager,
		Health:   healthAdapter{manager: manager},
	}
	registry := strategy.BuildDefaultRegistry(deps)

	store := statestore.New()
	q := queue.New(cfg.Agent.MaxConcurrent, registry, logger, store)

	mon := monitor.New(q, logger, monitor.WithShutdownTimeout(cfg.Monitor.ShutdownTimeout))

	var p *planner.Planner
	if model != nil {
		p = planner.New(model, auth, q, logger, planner.WithMaxCycles(cfg.Planner.MaxCycles))
	}

	return &Agent{
		cfg:     cfg,
		logger:  logger,
		queue:   q,
		manager: manager,
		monitor: mon,
		planner: p,
		history: historyStore,
	}
}

// Start launches the queue's dispatcher and the monitor's configured
// triggers. ctx bounds in-flight task execution, not the Agent's own
// lifetime — call Stop to shut down.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return fmt.Errorf("agentfacade: agent already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.queue.Start(runCtx)

	if err := a.monitor.Start(runCtx, a.cfg.Monitor.Triggers); err != nil {
		cancel()
		return fmt.Errorf("agentfacade: start monitor: %w", err)
	}

	a.started = true
	a.logger.Narrate("agent: started")
	return nil
}

// Stop shuts down the monitor and the queue in that order, then releases
// in-flight task contexts. When cfg.Agent.ShutdownTimeout is positive, Stop
// waits at most that long for the queue to drain before cancelling the
// in-flight tasks' contexts.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}

	a.monitor.Stop()
	queueDone := make(chan struct{})
	go func() {
		a.queue.Close()
		close(queueDone)
	}()
	if d := a.cfg.Agent.ShutdownTimeout; d > 0 {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), d)
		select {
		case <-queueDone:
		case <-waitCtx.Done():
			a.logger.Narrate(fmt.Sprintf("agent: queue did not drain within %s, cancelling in-flight tasks", d))
		}
		waitCancel()
	} else {
		<-queueDone
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.started = false
	a.logger.Narrate("agent: stopped")
}

// SubmitTask submits task to the queue and, when a history store is
// configured, subscribes to its completion to persist the final record. A
// task that doesn't set its own Timeout/MaxRetries picks up the configured
// agent-wide defaults instead of the package-level fallbacks.
func (a *Agent) SubmitTask(task *agentcore.Task) (string, error) {
	if task.Timeout == agentcore.DefaultTimeout && a.cfg.Agent.DefaultTimeout > 0 {
		task.Timeout = a.cfg.Agent.DefaultTimeout
	}
	if task.MaxRetries == agentcore.DefaultMaxRetries && a.cfg.Agent.DefaultMaxRetries > 0 {
		task.MaxRetries = a.cfg.Agent.DefaultMaxRetries
	}

	id, err := a.queue.Submit(task)
	if err != nil {
		return "", err
	}
	if a.history != nil {
		go a.recordOnCompletion(id)
	}
	return id, nil
}

func (a *Agent) recordOnCompletion(taskID string) {
	ch, err := a.queue.Subscribe(taskID)
	if err != nil {
		return
	}
	task, ok := <-ch
	if !ok || task == nil {
		return
	}
	if err := a.history.RecordTask(context.Background(), task); err != nil {
		a.logger.Narrate(fmt.Sprintf("agent: failed to record task %s history: %v", task.ID, err))
	}
}

// Plan decomposes goal into a Plan and executes it via the ReAct Planner,
// submitting synthesized tasks through the same queue SubmitTask uses.
func (a *Agent) Plan(ctx context.Context, goal string) (*planner.PlanResult, error) {
	if a.planner == nil {
		return nil, fmt.Errorf("agentfacade: planner not configured (no language model)")
	}
	plan, err := a.planner.CreatePlan(ctx, goal)
	if err != nil {
		return nil, err
	}
	return a.planner.ExecutePlan(ctx, plan)
}

// ExecutePreparedPlan runs a plan that was authored directly (e.g. parsed
// from a markdown checklist via planner.ParsePlanMarkdown) instead of
// derived from a goal via the ReAct decomposition phase. It still requires
// a planner to be configured, since ExecutePlan drives the same
// Act/Observe/Reflect cycle regardless of how the plan was produced.
func (a *Agent) ExecutePreparedPlan(ctx context.Context, plan *agentcore.Plan) (*planner.PlanResult, error) {
	if a.planner == nil {
		return nil, fmt.Errorf("agentfacade: planner not configured (no language model)")
	}
	return a.planner.ExecutePlan(ctx, plan)
}

// Status reports the queue's aggregate task counts and the configured
// remote servers' connection state.
type Status struct {
	Queue   queue.Stats
	Servers []agentcore.RemoteServer
}

// Status returns the agent's current runtime snapshot.
func (a *Agent) Status() Status {
	return Status{
		Queue:   a.queue.Stats(),
		Servers: a.manager.GetServerStatus(),
	}
}

// Task returns the current state of a previously submitted task.
func (a *Agent) Task(id string) (*agentcore.Task, bool) {
	return a.queue.Get(id)
}

// Cancel cancels a pending or running task.
func (a *Agent) Cancel(id string) (bool, error) {
	return a.queue.Cancel(id)
}

// ListTasks returns every task the queue is currently tracking, most
// recently submitted first.
func (a *Agent) ListTasks() []*agentcore.Task {
	return a.queue.List()
}

// ClearCompleted evicts terminal tasks from the queue and returns how many
// were removed.
func (a *Agent) ClearCompleted() int {
	return a.queue.ClearCompleted()
}

// ConnectServer connects the Remote Tool Manager to a configured MCP
// server.
func (a *Agent) ConnectServer(ctx context.Context, server *agentcore.RemoteServer) error {
	return a.manager.Connect(ctx, server)
}
