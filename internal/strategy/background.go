package strategy

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/harrison/agentcore/internal/agentcore"
)

// BackgroundStrategy implements BACKGROUND_PROCESS: it starts a detached
// process and returns its pid immediately. The process can later be
// killed by pid through the process table below.
type BackgroundStrategy struct {
	Narrator Narrator

	mu        sync.Mutex
	processes map[int]*exec.Cmd
}

// NewBackgroundStrategy constructs a BackgroundStrategy. narrator may be nil.
func NewBackgroundStrategy(narrator Narrator) *BackgroundStrategy {
	return &BackgroundStrategy{Narrator: narrator, processes: make(map[int]*exec.Cmd)}
}

// Execute implements Strategy.
func (s *BackgroundStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		command, err := requireParam(task, "command")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		if reason := checkDenylist(command); reason != "" {
			return agentcore.TaskResult{}, agentcore.NewCommandBlockedError(command, reason)
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent starting background process (in: %s): %s", task.Context.WorkingDirectory, command))
		}

		shellBin, flag := shellInvocation()
		cmd := exec.Command(shellBin, flag, command)
		if task.Context.WorkingDirectory != "" {
			cmd.Dir = task.Context.WorkingDirectory
		}
		cmd.Env = envSlice(task.Context.Environment)

		if err := cmd.Start(); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		pid := cmd.Process.Pid
		s.mu.Lock()
		s.processes[pid] = cmd
		s.mu.Unlock()

		go func() {
			_ = cmd.Wait()
			s.mu.Lock()
			delete(s.processes, pid)
			s.mu.Unlock()
		}()

		return agentcore.TaskResult{
			Success: true,
			Output:  fmt.Sprintf("started background process pid=%d", pid),
			Artifacts: map[string]any{"pid": pid},
		}, nil
	})
}

// Kill terminates a background process previously started by this
// strategy, identified by pid. Returns false if no such process is
// tracked (already exited or unknown pid).
func (s *BackgroundStrategy) Kill(pid int) (bool, error) {
	s.mu.Lock()
	cmd, ok := s.processes[pid]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return false, err
	}
	return true, nil
}
