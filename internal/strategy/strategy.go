// Package strategy implements one executor strategy per task kind: the
// pure functions the dispatcher (internal/queue) hands a runnable task to.
// Each strategy validates its required parameters, narrates the side
// effect it is about to perform, measures wall time, and returns a
// populated agentcore.TaskResult.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// Strategy executes a single task and returns its result.
type Strategy interface {
	Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error)

// Execute calls f.
func (f StrategyFunc) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return f(ctx, task)
}

// Narrator receives the human-readable narration line a strategy emits
// before performing its side effect (spec.md §4.3: "agent executing
// command (in: DIR): CMD"). The console logger implements this; tests can
// substitute a recording stub.
type Narrator interface {
	Narrate(line string)
}

// NarratorFunc adapts a function to Narrator.
type NarratorFunc func(line string)

// Narrate calls f.
func (f NarratorFunc) Narrate(line string) { f(line) }

// Registry maps a task kind to the strategy that executes it.
type Registry struct {
	strategies map[agentcore.TaskKind]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[agentcore.TaskKind]Strategy)}
}

// Register binds kind to strategy, overwriting any previous binding. This
// is also the extension point for CUSTOM task kinds registered by an
// embedder of this module.
func (r *Registry) Register(kind agentcore.TaskKind, s Strategy) {
	r.strategies[kind] = s
}

// Lookup returns the strategy bound to kind, if any.
func (r *Registry) Lookup(kind agentcore.TaskKind) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// timed runs fn and returns a TaskResult with ExecutionTimeMs populated
// from the elapsed wall time, regardless of whether fn succeeded.
func timed(fn func() (agentcore.TaskResult, error)) (agentcore.TaskResult, error) {
	start := time.Now()
	result, err := fn()
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, err
}

// requireParam fetches a required string parameter, returning a
// ValidationError if it is absent or empty.
func requireParam(task *agentcore.Task, name string) (string, error) {
	raw, ok := task.Parameters[name]
	if !ok {
		return "", agentcore.NewValidationError(name, fmt.Sprintf("missing required parameter %q for kind %s", name, task.Kind))
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", agentcore.NewValidationError(name, fmt.Sprintf("parameter %q must be a non-empty string", name))
	}
	return s, nil
}

// optionalParam fetches an optional string parameter, returning def if
// absent.
func optionalParam(task *agentcore.Task, name, def string) string {
	raw, ok := task.Parameters[name]
	if !ok {
		return def
	}
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	return def
}

// optionalBool fetches an optional boolean parameter.
func optionalBool(task *agentcore.Task, name string, def bool) bool {
	raw, ok := task.Parameters[name]
	if !ok {
		return def
	}
	if b, ok := raw.(bool); ok {
		return b
	}
	return def
}
