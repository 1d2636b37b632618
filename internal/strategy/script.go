package strategy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/harrison/agentcore/internal/agentcore"
)

// ScriptStrategy implements SCRIPT_EXECUTION: it writes script content to a
// scoped temp file, invokes the interpreter matching "script_type", and
// guarantees deletion of the temp file on every exit path.
type ScriptStrategy struct {
	Narrator Narrator
}

// NewScriptStrategy constructs a ScriptStrategy. narrator may be nil.
func NewScriptStrategy(narrator Narrator) *ScriptStrategy {
	return &ScriptStrategy{Narrator: narrator}
}

// interpreterFor maps a script_type parameter to the interpreter binary and
// file suffix used for the scoped temp file.
func interpreterFor(scriptType string) (bin string, args []string, suffix string, err error) {
	switch scriptType {
	case "bash", "sh":
		return scriptType, nil, ".sh", nil
	case "powershell", "ps1":
		return "pwsh", []string{"-File"}, ".ps1", nil
	case "python", "py":
		return "python3", nil, ".py", nil
	case "lua":
		return "lua", nil, ".lua", nil
	default:
		return "", nil, "", agentcore.NewValidationError("script_type", fmt.Sprintf("unsupported script_type %q", scriptType))
	}
}

// Execute implements Strategy.
func (s *ScriptStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		content, err := requireParam(task, "script_content")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		scriptType := optionalParam(task, "script_type", "bash")

		bin, prefixArgs, suffix, err := interpreterFor(scriptType)
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		tmp, err := os.CreateTemp("", "agentcore-script-*"+suffix)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		tmpPath := tmp.Name()
		// Guaranteed cleanup on every exit path: success, failure, or panic.
		defer os.Remove(tmpPath)

		if _, err := tmp.WriteString(content); err != nil {
			tmp.Close()
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		if err := tmp.Close(); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		if scriptType == "bash" || scriptType == "sh" {
			if err := os.Chmod(tmpPath, 0o700); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent executing %s script: %s", scriptType, tmpPath))
		}

		args := append(append([]string{}, prefixArgs...), tmpPath)
		cmd := exec.CommandContext(ctx, bin, args...)
		if task.Context.WorkingDirectory != "" {
			cmd.Dir = task.Context.WorkingDirectory
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
			CommandsExecuted: []string{filepath.Base(tmpPath)},
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
