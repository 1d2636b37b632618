package planner

import (
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanMarkdownBasic(t *testing.T) {
	src := []byte(`# Ship the release notes

- [ ] draft the changelog
- [ ] publish the changelog (after 1)
`)
	plan, err := ParsePlanMarkdown(src)
	require.NoError(t, err)
	assert.Equal(t, "Ship the release notes", plan.Goal)
	require.Len(t, plan.Subtasks, 2)
	assert.Equal(t, "draft the changelog", plan.Subtasks[0].Description)
	assert.Equal(t, "publish the changelog ", plan.Subtasks[1].Description)
	assert.Equal(t, []int{0}, plan.Subtasks[1].Dependencies)
	assert.Equal(t, agentcore.PriorityMedium, plan.Subtasks[0].Priority)
}

func TestParsePlanMarkdownMissingGoalErrors(t *testing.T) {
	_, err := ParsePlanMarkdown([]byte("- [ ] do a thing\n"))
	assert.Error(t, err)
}

func TestParsePlanMarkdownMissingChecklistErrors(t *testing.T) {
	_, err := ParsePlanMarkdown([]byte("# A goal with no steps\n"))
	assert.Error(t, err)
}
