package strategy

import (
	"context"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
)

// ToolCaller is the slice of the Remote Tool Manager (internal/rpc) that
// REMOTE_TOOL_CALL needs: invoke a named tool with arguments and get back
// the concatenated text of its content items.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (string, error)
}

// RemoteToolStrategy implements REMOTE_TOOL_CALL and
// REMOTE_RESOURCE_ACCESS by delegating to the Remote Tool Manager.
type RemoteToolStrategy struct {
	Caller   ToolCaller
	Narrator Narrator
}

// NewRemoteToolStrategy constructs a RemoteToolStrategy.
func NewRemoteToolStrategy(caller ToolCaller, narrator Narrator) *RemoteToolStrategy {
	return &RemoteToolStrategy{Caller: caller, Narrator: narrator}
}

// Execute implements Strategy.
func (s *RemoteToolStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		toolName, err := requireParam(task, "tool_name")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		var args map[string]any
		if raw, ok := task.Parameters["arguments"]; ok {
			if m, ok := raw.(map[string]any); ok {
				args = m
			}
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent calling remote tool: %s", toolName))
		}

		text, err := s.Caller.CallTool(ctx, toolName, args)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		return agentcore.TaskResult{Success: true, Output: text}, nil
	})
}
