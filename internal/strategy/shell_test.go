package strategy

import (
	"context"
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellCommandEchoesOutput(t *testing.T) {
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters["command"] = "echo hello"

	s := NewShellStrategy(nil)
	result, err := s.Execute(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "hello")
	assert.Equal(t, 0, result.ExitCode)
}

func TestShellCommandBlockedByDenylist(t *testing.T) {
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters["command"] = "rm -rf /"

	s := NewShellStrategy(nil)
	_, err := s.Execute(context.Background(), task)
	require.Error(t, err)
	assert.True(t, agentcore.IsCommandBlocked(err))
}

func TestShellCommandNonZeroExit(t *testing.T) {
	task := agentcore.New(agentcore.KindShellCommand, agentcore.PriorityMedium)
	task.Parameters["command"] = "exit 7"

	s := NewShellStrategy(nil)
	result, err := s.Execute(context.Background(), task)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 7, result.ExitCode)
}
