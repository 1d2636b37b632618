package strategy

import (
	"context"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
)

// CustomHandler is the function signature an embedder registers for a
// CUSTOM task's action_class.
type CustomHandler func(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error)

// CustomStrategy implements CUSTOM: a registration hook dispatching by the
// task's action_class parameter to a user-supplied handler. The
// action_class identifier is always recorded in the result artifacts,
// regardless of which handler ran.
type CustomStrategy struct {
	handlers map[string]CustomHandler
	Narrator Narrator
}

// NewCustomStrategy constructs an empty CustomStrategy.
func NewCustomStrategy(narrator Narrator) *CustomStrategy {
	return &CustomStrategy{handlers: make(map[string]CustomHandler), Narrator: narrator}
}

// RegisterHandler binds actionClass to handler.
func (s *CustomStrategy) RegisterHandler(actionClass string, handler CustomHandler) {
	s.handlers[actionClass] = handler
}

// Execute implements Strategy.
func (s *CustomStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		actionClass, err := requireParam(task, "action_class")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		handler, ok := s.handlers[actionClass]
		if !ok {
			return agentcore.TaskResult{}, agentcore.NewValidationError("action_class", fmt.Sprintf("no custom handler registered for %q", actionClass))
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent executing custom action: %s", actionClass))
		}

		result, err := handler(ctx, task)
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		if result.Artifacts == nil {
			result.Artifacts = map[string]any{}
		}
		result.Artifacts["action_class"] = actionClass
		return result, nil
	})
}
