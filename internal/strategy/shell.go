package strategy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/harrison/agentcore/internal/agentcore"
)

// ShellStrategy implements SHELL_COMMAND by delegating to an OS-appropriate
// shell and rejecting commands that match the destructive-command
// denylist.
type ShellStrategy struct {
	Narrator Narrator
}

// NewShellStrategy constructs a ShellStrategy. narrator may be nil.
func NewShellStrategy(narrator Narrator) *ShellStrategy {
	return &ShellStrategy{Narrator: narrator}
}

// shellInvocation returns the shell binary and the flag that introduces an
// inline command string, matching the OS-appropriate shell spec.md §4.3
// names.
func shellInvocation() (shell string, flag string) {
	switch runtime.GOOS {
	case "windows":
		return "cmd", "/c"
	case "darwin":
		return "/bin/zsh", "-c"
	default:
		return "/bin/bash", "-c"
	}
}

// Execute implements Strategy.
func (s *ShellStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		command, err := requireParam(task, "command")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		if reason := checkDenylist(command); reason != "" {
			return agentcore.TaskResult{}, agentcore.NewCommandBlockedError(command, reason)
		}

		workDir := task.Context.WorkingDirectory
		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent executing command (in: %s): %s", workDir, command))
		}

		shellBin, flag := shellInvocation()
		cmd := exec.CommandContext(ctx, shellBin, flag, command)
		if workDir != "" {
			cmd.Dir = workDir
		}
		cmd.Env = envSlice(task.Context.Environment)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		exitCode := 0
		success := runErr == nil
		if runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}

		result := agentcore.TaskResult{
			Success:          success,
			Output:           stdout.String(),
			ExitCode:         exitCode,
			CommandsExecuted: []string{command},
		}
		if !success {
			result.Error = stderr.String()
			if result.Error == "" && runErr != nil {
				result.Error = runErr.Error()
			}
		}
		return result, nil
	})
}

// envSlice merges a task's environment overrides onto the process
// environment in the os/exec "KEY=VALUE" slice form. A nil/empty overrides
// map means "inherit the process environment", signalled by a nil Env.
func envSlice(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	out := append([]string{}, os.Environ()...)
	for k, v := range overrides {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
