package agentfacade

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/control"
	"github.com/harrison/agentcore/internal/planner"
)

// RunPlanParams is the JSON shape agent-plan sends over the control
// socket: either a free-text Goal (decomposed via the ReAct planner's
// language model) or a pre-authored markdown checklist in Markdown.
type RunPlanParams struct {
	Goal     string `json:"goal"`
	Markdown string `json:"markdown"`
}

// SubmitTaskParams is the JSON shape agent-task sends over the control
// socket.
type SubmitTaskParams struct {
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	Command     string         `json:"command"`
	Priority    int            `json:"priority"`
	Parameters  map[string]any `json:"parameters"`
}

// ListTasksParams filters agent-tasks's listing.
type ListTasksParams struct {
	Limit  int    `json:"limit"`
	Status string `json:"status"`
}

// RegisterControlHandlers wires the agent's control-plane surface onto srv,
// one handler per CLI verb that needs a running agent to talk to.
func (a *Agent) RegisterControlHandlers(srv *control.Server) {
	srv.Handle("status", func(ctx context.Context, raw json.RawMessage) (any, error) {
		return a.Status(), nil
	})

	srv.Handle("submitTask", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p SubmitTaskParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode submitTask params: %w", err)
		}
		task := agentcore.New(agentcore.TaskKind(p.Kind), agentcore.Priority(p.Priority))
		task.Description = p.Description
		if p.Parameters != nil {
			task.Parameters = p.Parameters
		} else {
			task.Parameters = map[string]any{}
		}
		if p.Command != "" {
			task.Parameters["command"] = p.Command
		}
		id, err := a.SubmitTask(task)
		if err != nil {
			return nil, err
		}
		return map[string]string{"taskId": id}, nil
	})

	srv.Handle("listTasks", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p ListTasksParams
		_ = json.Unmarshal(raw, &p)
		tasks := a.ListTasks()
		out := make([]*agentcore.Task, 0, len(tasks))
		for _, t := range tasks {
			if p.Status != "" && string(t.Status) != p.Status {
				continue
			}
			out = append(out, t)
			if p.Limit > 0 && len(out) >= p.Limit {
				break
			}
		}
		return out, nil
	})

	srv.Handle("getTask", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &p)
		task, ok := a.Task(p.ID)
		if !ok {
			return nil, agentcore.ErrTaskNotFound
		}
		return task, nil
	})

	srv.Handle("cancelTask", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &p)
		ok, err := a.Cancel(p.ID)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"cancelled": ok}, nil
	})

	srv.Handle("clearCompleted", func(ctx context.Context, raw json.RawMessage) (any, error) {
		return map[string]int{"removed": a.ClearCompleted()}, nil
	})

	srv.Handle("runPlan", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p RunPlanParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode runPlan params: %w", err)
		}
		if p.Markdown != "" {
			plan, err := planner.ParsePlanMarkdown([]byte(p.Markdown))
			if err != nil {
				return nil, err
			}
			return a.ExecutePreparedPlan(ctx, plan)
		}
		return a.Plan(ctx, p.Goal)
	})
}
