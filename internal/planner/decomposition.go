package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrison/agentcore/internal/agentcore"
)

const decompositionSystemPrompt = "You are a planning assistant for an autonomous developer agent. " +
	"Decompose goals into concrete, independently executable subtasks. Respond only in the requested block format."

func decompositionUserPrompt(goal string) string {
	return fmt.Sprintf(`Goal: %s

Break this goal into 8-12 subtasks. Emit one block per subtask in exactly this format:

SUBTASK_1:
Description: <one sentence>
Expected Outcome: <one sentence>
Priority: <critical|high|medium|low|background>
Complexity: <low|medium|high>
Dependencies: <comma-separated subtask numbers this depends on, or none>
File Path: <optional>
File Content: <optional>
Commands: <optional, comma-separated>

SUBTASK_2:
...

Emit nothing before SUBTASK_1 or after the last block's fields.`, goal)
}

const strategySystemPrompt = "You are a planning assistant. Given a decomposed plan, describe execution order, risks, and mitigations in free text."

func strategyUserPrompt(plan *agentcore.Plan) string {
	var sb strings.Builder
	sb.WriteString("Goal: " + plan.Goal + "\n\nSubtasks:\n")
	for i, s := range plan.Subtasks {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.Description))
	}
	sb.WriteString("\nDescribe the execution order, key risks, and mitigations for this plan.")
	return sb.String()
}

// subtaskHeading matches a SUBTASK_N block marker, the same shape the
// teacher's markdown parser uses for "## Task N: ..." headings, adapted to
// the planner's own marker syntax.
var subtaskHeading = regexp.MustCompile(`^SUBTASK_(\d+)\s*:?\s*$`)

// parseSubtasks scans the LM's decomposition response line by line,
// splitting it into SUBTASK_N blocks and parsing each block's fields by
// exact-prefix matching, per spec.md's decomposition phase.
func parseSubtasks(text string) []agentcore.Subtask {
	var subtasks []agentcore.Subtask
	var current *strings.Builder

	flush := func() {
		if current != nil {
			subtasks = append(subtasks, parseSubtaskFields(current.String()))
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if subtaskHeading.MatchString(strings.TrimSpace(line)) {
			flush()
			current = &strings.Builder{}
			continue
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	flush()

	return subtasks
}

// fieldPrefixes maps each recognised marker to the Subtask field it fills.
// Order does not matter; matching is by exact line prefix after trimming.
const (
	prefixDescription     = "Description:"
	prefixExpectedOutcome = "Expected Outcome:"
	prefixPriority        = "Priority:"
	prefixComplexity      = "Complexity:"
	prefixDependencies    = "Dependencies:"
	prefixFilePath        = "File Path:"
	prefixFileContent     = "File Content:"
	prefixCommands        = "Commands:"
)

func parseSubtaskFields(block string) agentcore.Subtask {
	var s agentcore.Subtask
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, prefixDescription):
			s.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, prefixDescription))
		case strings.HasPrefix(trimmed, prefixExpectedOutcome):
			s.ExpectedOutcome = strings.TrimSpace(strings.TrimPrefix(trimmed, prefixExpectedOutcome))
		case strings.HasPrefix(trimmed, prefixPriority):
			s.Priority = parsePriority(strings.TrimSpace(strings.TrimPrefix(trimmed, prefixPriority)))
		case strings.HasPrefix(trimmed, prefixComplexity):
			s.Complexity = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, prefixComplexity)))
		case strings.HasPrefix(trimmed, prefixDependencies):
			s.Dependencies = parseDependencyList(strings.TrimPrefix(trimmed, prefixDependencies))
		case strings.HasPrefix(trimmed, prefixFilePath):
			s.FilePath = strings.TrimSpace(strings.TrimPrefix(trimmed, prefixFilePath))
		case strings.HasPrefix(trimmed, prefixFileContent):
			s.FileContent = strings.TrimSpace(strings.TrimPrefix(trimmed, prefixFileContent))
		case strings.HasPrefix(trimmed, prefixCommands):
			s.Commands = parseCommaList(strings.TrimPrefix(trimmed, prefixCommands))
		}
	}
	if s.Priority == 0 {
		s.Priority = agentcore.PriorityMedium
	}
	return s
}

func parsePriority(raw string) agentcore.Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return agentcore.PriorityCritical
	case "high":
		return agentcore.PriorityHigh
	case "medium":
		return agentcore.PriorityMedium
	case "low":
		return agentcore.PriorityLow
	case "background":
		return agentcore.PriorityBackground
	default:
		return agentcore.PriorityMedium
	}
}

// parseDependencyList turns "1, 3" into zero-based ordinal indices [0, 2],
// matching the Subtask.Dependencies contract ("ordinal positions within
// the plan"). Non-numeric entries and "none" are dropped.
func parseDependencyList(raw string) []int {
	var deps []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "none") {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			continue
		}
		deps = append(deps, n-1)
	}
	return deps
}

func parseCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
