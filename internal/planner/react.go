package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/agentcore/internal/agentcore"
)

// actionDecision is the structured result of the Acting phase.
type actionDecision struct {
	ActionType      string
	Description     string
	Parameters      map[string]string
	ExpectedOutcome string
}

// runSubtask drives subtask plan.Subtasks[idx] through up to maxCycles
// Reason/Act/Observe/Reflect cycles, mutating its Status and TaskID in
// place and merging any memory updates into plan.WorkingMemory.
func (p *Planner) runSubtask(ctx context.Context, plan *agentcore.Plan, idx int) {
	subtask := &plan.Subtasks[idx]
	p.narrate("planner: starting subtask %d: %s", idx+1, subtask.Description)

	for cycle := 1; cycle <= p.maxCycles; cycle++ {
		p.narrate("planner: subtask %d cycle %d/%d: reasoning", idx+1, cycle, p.maxCycles)
		reasoning, _, err := p.model.Ask(ctx, reasonSystemPrompt, reasonUserPrompt(plan, *subtask), nil)
		if err != nil {
			p.narrate("planner: subtask %d reasoning failed: %v", idx+1, err)
			continue
		}

		p.narrate("planner: subtask %d cycle %d/%d: acting", idx+1, cycle, p.maxCycles)
		actionText, _, err := p.model.Ask(ctx, actSystemPrompt, actUserPrompt(reasoning, *subtask), nil)
		if err != nil {
			p.narrate("planner: subtask %d acting failed: %v", idx+1, err)
			continue
		}
		decision := parseActionDecision(actionText)

		task := agentcore.New(mapActionType(decision.ActionType), subtask.Priority)
		task.Description = decision.Description
		if task.Description == "" {
			task.Description = subtask.Description
		}
		for k, v := range decision.Parameters {
			task.Parameters[k] = v
		}
		if subtask.FilePath != "" {
			task.Parameters["file_path"] = subtask.FilePath
		}
		if subtask.FileContent != "" {
			task.Parameters["content"] = subtask.FileContent
		}

		taskID, err := p.queue.Submit(task)
		if err != nil {
			p.narrate("planner: subtask %d submit failed: %v", idx+1, err)
			continue
		}
		subtask.TaskID = taskID

		result := p.awaitTask(ctx, taskID)
		if result == nil {
			p.narrate("planner: subtask %d: task %s did not reach a terminal state before context cancellation", idx+1, taskID)
			subtask.Status = agentcore.StatusFailed
			return
		}
		subtask.Status = result.Status

		p.narrate("planner: subtask %d cycle %d/%d: observing", idx+1, cycle, p.maxCycles)
		observation, _, err := p.model.Ask(ctx, observeSystemPrompt, observeUserPrompt(result), nil)
		if err != nil {
			observation = summarizeResult(result)
		}

		p.narrate("planner: subtask %d cycle %d/%d: reflecting", idx+1, cycle, p.maxCycles)
		reflection, _, err := p.model.Ask(ctx, reflectSystemPrompt, reflectUserPrompt(subtask.Description, observation), nil)
		succeeded := false
		if err == nil {
			succeeded, plan.WorkingMemory = applyReflection(reflection, plan.WorkingMemory)
		}

		if succeeded {
			subtask.Status = agentcore.StatusCompleted
			p.narrate("planner: subtask %d succeeded on cycle %d", idx+1, cycle)
			return
		}
		p.narrate("planner: subtask %d not yet successful, replanning (cycle %d/%d)", idx+1, cycle, p.maxCycles)
	}

	if !subtask.Status.IsTerminal() || subtask.Status == agentcore.StatusPending {
		subtask.Status = agentcore.StatusFailed
	}
	p.narrate("planner: subtask %d failed after %d cycles", idx+1, p.maxCycles)
}

// awaitTask blocks on the queue's one-shot completion channel for taskID,
// returning nil if ctx is cancelled first.
func (p *Planner) awaitTask(ctx context.Context, taskID string) *agentcore.Task {
	ch, err := p.queue.Subscribe(taskID)
	if err != nil {
		return nil
	}
	select {
	case task, ok := <-ch:
		if !ok {
			return nil
		}
		return task
	case <-ctx.Done():
		return nil
	}
}

func summarizeResult(task *agentcore.Task) string {
	if task.Result == nil {
		return fmt.Sprintf("task %s finished with status %s", task.ID, task.Status)
	}
	return fmt.Sprintf("status=%s success=%v output=%q error=%q exitCode=%d",
		task.Status, task.Result.Success, task.Result.Output, task.Result.Error, task.Result.ExitCode)
}

// mapActionType translates the LM's free-text ACTION_TYPE into a task
// kind. Unrecognized values fall back to KindCustom so the subtask still
// produces an observable result instead of silently being dropped.
func mapActionType(actionType string) agentcore.TaskKind {
	kind := agentcore.TaskKind(strings.ToUpper(strings.TrimSpace(actionType)))
	if kind.IsValid() {
		return kind
	}
	return agentcore.KindCustom
}

const reasonSystemPrompt = "You are the reasoning phase of a ReAct loop. Given working memory and the current subtask, state what should be done next in one paragraph."

func reasonUserPrompt(plan *agentcore.Plan, subtask agentcore.Subtask) string {
	var sb strings.Builder
	sb.WriteString("Working memory:\n")
	for k, v := range plan.WorkingMemory {
		sb.WriteString(fmt.Sprintf("%s: %s\n", k, v))
	}
	sb.WriteString("\nCurrent subtask: " + subtask.Description)
	sb.WriteString("\nExpected outcome: " + subtask.ExpectedOutcome)
	return sb.String()
}

const actSystemPrompt = "You are the acting phase of a ReAct loop. Respond only in the requested block format."

func actUserPrompt(reasoning string, subtask agentcore.Subtask) string {
	return fmt.Sprintf(`Reasoning: %s

Produce a single action decision in exactly this format:

ACTION_TYPE: <task kind, e.g. SHELL_COMMAND, FILE_WRITE, AI_ANALYSIS>
ACTION_DESCRIPTION: <one sentence>
PARAMETERS: <comma-separated key=value pairs>
EXPECTED_OUTCOME: <one sentence>`, reasoning)
}

func parseActionDecision(text string) actionDecision {
	var d actionDecision
	d.Parameters = map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "ACTION_TYPE:"):
			d.ActionType = strings.TrimSpace(strings.TrimPrefix(trimmed, "ACTION_TYPE:"))
		case strings.HasPrefix(trimmed, "ACTION_DESCRIPTION:"):
			d.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, "ACTION_DESCRIPTION:"))
		case strings.HasPrefix(trimmed, "PARAMETERS:"):
			for _, pair := range strings.Split(strings.TrimPrefix(trimmed, "PARAMETERS:"), ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) == 2 && kv[0] != "" {
					d.Parameters[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
				}
			}
		case strings.HasPrefix(trimmed, "EXPECTED_OUTCOME:"):
			d.ExpectedOutcome = strings.TrimSpace(strings.TrimPrefix(trimmed, "EXPECTED_OUTCOME:"))
		}
	}
	return d
}

const observeSystemPrompt = "You are the observation phase of a ReAct loop. Summarize the task result in one or two sentences."

func observeUserPrompt(task *agentcore.Task) string {
	return summarizeResult(task)
}

const reflectSystemPrompt = "You are the self-reflection phase of a ReAct loop. Answer strictly in the requested format."

func reflectUserPrompt(subtaskDescription, observation string) string {
	return fmt.Sprintf(`Subtask: %s
Observation: %s

Has the subtask succeeded? Respond in exactly this format:

SUCCEEDED: YES or NO
REASONING: <one sentence>
MEMORY_UPDATES: <comma-separated key=value pairs, or none>`, subtaskDescription, observation)
}

// applyReflection parses a self-reflection response, merges any memory
// updates into memory (returned, since map mutation in place is equally
// valid but the explicit return keeps the call site obvious), and reports
// whether the subtask is considered succeeded.
func applyReflection(text string, memory map[string]string) (bool, map[string]string) {
	succeeded := false
	if memory == nil {
		memory = map[string]string{}
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SUCCEEDED:"):
			v := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(trimmed, "SUCCEEDED:")))
			succeeded = strings.HasPrefix(v, "YES")
		case strings.HasPrefix(trimmed, "MEMORY_UPDATES:"):
			raw := strings.TrimPrefix(trimmed, "MEMORY_UPDATES:")
			for _, pair := range strings.Split(raw, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) == 2 && kv[0] != "" {
					memory[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
				}
			}
		}
	}
	return succeeded, memory
}
