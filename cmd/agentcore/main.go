// Package main is the CLI entry point for the autonomous agent core.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/cmd"
)

// Version is the current version of the agentcore binary.
const Version = "1.0.0"

// Exit codes, per the CLI's external-interface contract: 0 success, 1
// configuration error, 2 runtime error during startup, 130 on SIGINT.
const (
	exitSuccess      = 0
	exitConfigError  = 1
	exitRuntimeError = 2
	exitInterrupted  = 130
)

func main() {
	cmd.Version = Version
	rootCmd := cmd.NewRootCommand()

	err := rootCmd.Execute()
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, cmd.ErrInterrupted):
		return exitInterrupted
	case agentcore.IsConfigError(err):
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitConfigError
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitRuntimeError
	}
}
