package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/agentcore/internal/agentcore"
)

// subtaskDescriptor is one entry of a COMPOSITE task's "subtasks"
// parameter: a kind plus its own parameters, inheriting the parent's
// context.
type subtaskDescriptor struct {
	Kind       string
	Parameters map[string]any
}

// CompositeStrategy implements COMPOSITE: it executes an embedded sequence
// of subtask descriptors inline, against the same strategy Registry the
// dispatcher uses, concatenating their outputs with "\n---\n".
type CompositeStrategy struct {
	Registry *Registry
	Narrator Narrator
}

// NewCompositeStrategy constructs a CompositeStrategy.
func NewCompositeStrategy(registry *Registry, narrator Narrator) *CompositeStrategy {
	return &CompositeStrategy{Registry: registry, Narrator: narrator}
}

func parseSubtaskDescriptors(task *agentcore.Task) ([]subtaskDescriptor, error) {
	raw, ok := task.Parameters["subtasks"]
	if !ok {
		return nil, agentcore.NewValidationError("subtasks", "COMPOSITE task requires a non-empty subtasks parameter")
	}
	list, ok := raw.([]map[string]any)
	if !ok {
		return nil, agentcore.NewValidationError("subtasks", "subtasks must be a list of {kind, parameters} entries")
	}
	if len(list) == 0 {
		return nil, agentcore.NewValidationError("subtasks", "COMPOSITE task requires a non-empty subtasks parameter")
	}

	out := make([]subtaskDescriptor, 0, len(list))
	for i, entry := range list {
		kind, _ := entry["kind"].(string)
		if kind == "" {
			return nil, agentcore.NewValidationError("subtasks", fmt.Sprintf("subtask %d missing kind", i))
		}
		params, _ := entry["parameters"].(map[string]any)
		out = append(out, subtaskDescriptor{Kind: kind, Parameters: params})
	}
	return out, nil
}

// Execute implements Strategy.
func (s *CompositeStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		descriptors, err := parseSubtaskDescriptors(task)
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent executing composite task with %d subtasks", len(descriptors)))
		}

		var outputs []string
		var createdFiles, modifiedFiles, commands []string
		overallSuccess := true

		for i, d := range descriptors {
			kind := agentcore.TaskKind(d.Kind)
			if !kind.IsValid() {
				return agentcore.TaskResult{}, agentcore.NewValidationError("subtasks", fmt.Sprintf("subtask %d has unknown kind %q", i, d.Kind))
			}
			strat, ok := s.Registry.Lookup(kind)
			if !ok {
				return agentcore.TaskResult{}, agentcore.NewValidationError("subtasks", fmt.Sprintf("subtask %d: no strategy registered for kind %q", i, d.Kind))
			}

			sub := agentcore.New(kind, task.Priority)
			sub.Context = task.Context
			sub.Context.ParentTaskID = task.ID
			sub.Parameters = d.Parameters
			sub.MarkQueued()
			sub.MarkStarted()

			result, execErr := strat.Execute(ctx, sub)
			if execErr != nil {
				return agentcore.TaskResult{}, agentcore.NewTaskError(task.ID, fmt.Sprintf("composite subtask %d (%s) failed", i, d.Kind), execErr)
			}

			outputs = append(outputs, result.Output)
			createdFiles = append(createdFiles, result.FilesCreated...)
			modifiedFiles = append(modifiedFiles, result.FilesModified...)
			commands = append(commands, result.CommandsExecuted...)
			if !result.Success {
				overallSuccess = false
			}
		}

		return agentcore.TaskResult{
			Success:          overallSuccess,
			Output:           strings.Join(outputs, "\n---\n"),
			FilesCreated:     createdFiles,
			FilesModified:    modifiedFiles,
			CommandsExecuted: commands,
		}, nil
	})
}
