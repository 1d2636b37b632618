package planner

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/agentcore/internal/agentcore"
)

// ParsePlanMarkdown reads a hand-authored plan document and turns it into a
// Plan the ReAct planner can execute directly, skipping the decomposition
// phase entirely. The expected shape is one H1 as the goal followed by a
// checklist:
//
//	# Goal text
//
//	- [ ] first subtask description
//	- [ ] second subtask description
//
// A checklist item's ordinal position becomes its dependency target when a
// later item names it via "after N" (1-indexed) at the end of the line,
// e.g. "- [ ] deploy (after 1)".
func ParsePlanMarkdown(src []byte) (*agentcore.Plan, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var goal string
	var subtasks []agentcore.Subtask

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && goal == "" {
				goal = extractText(node, src)
			}
		case *ast.ListItem:
			line := extractText(node, src)
			desc, ok := stripCheckbox(line)
			if !ok {
				return ast.WalkContinue, nil
			}
			desc, deps := extractAfterClause(desc)
			subtasks = append(subtasks, agentcore.Subtask{
				Description:  desc,
				Priority:     agentcore.PriorityMedium,
				Dependencies: deps,
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse plan markdown: %w", err)
	}
	if goal == "" {
		return nil, fmt.Errorf("parse plan markdown: missing H1 goal heading")
	}
	if len(subtasks) == 0 {
		return nil, fmt.Errorf("parse plan markdown: no checklist subtasks found")
	}

	plan := agentcore.NewPlan(goal)
	plan.Subtasks = subtasks
	return plan, nil
}

// extractText collects the plain text of every *ast.Text descendant of n,
// in document order.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return buf.String()
}

// stripCheckbox recognizes "[ ] " or "[x] " prefixes (goldmark strips the
// leading "- " list marker itself) and returns the remaining description.
func stripCheckbox(line string) (string, bool) {
	for _, prefix := range []string{"[ ] ", "[x] ", "[X] "} {
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			return line[len(prefix):], true
		}
	}
	return "", false
}

// extractAfterClause pulls a trailing "(after N[, M...])" clause off desc
// and returns the remaining description plus the 0-indexed dependency list.
func extractAfterClause(desc string) (string, []int) {
	idx := bytes.LastIndex([]byte(desc), []byte("(after "))
	if idx < 0 {
		return desc, nil
	}
	tail := desc[idx+len("(after "):]
	end := bytes.IndexByte([]byte(tail), ')')
	if end < 0 {
		return desc, nil
	}
	var deps []int
	n := 0
	has := false
	for _, r := range tail[:end] {
		switch {
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
			has = true
		case r == ',' || r == ' ':
			if has {
				deps = append(deps, n-1)
			}
			n, has = 0, false
		}
	}
	if has {
		deps = append(deps, n-1)
	}
	return desc[:idx], deps
}
