package main

import (
	"errors"
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/cmd"
	"github.com/stretchr/testify/assert"
)

func TestExitCodeForSuccess(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCodeFor(nil))
}

func TestExitCodeForInterrupted(t *testing.T) {
	assert.Equal(t, exitInterrupted, exitCodeFor(cmd.ErrInterrupted))
}

func TestExitCodeForConfigError(t *testing.T) {
	err := agentcore.NewConfigError("config.yaml", "bad value", nil)
	assert.Equal(t, exitConfigError, exitCodeFor(err))
}

func TestExitCodeForGenericRuntimeError(t *testing.T) {
	assert.Equal(t, exitRuntimeError, exitCodeFor(errors.New("boom")))
}
