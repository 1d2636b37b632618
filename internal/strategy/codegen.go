package strategy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
)

// CodeGenStrategy implements CODE_GENERATION: ask the LM for a structured
// response (LANGUAGE/FILENAME/DIRECTORIES + a CODE block or fenced
// markdown block), write the requested file, then optionally execute it
// when an interpreter is available.
type CodeGenStrategy struct {
	Model    llm.LanguageModel
	Narrator Narrator

	// ProbeTimeout bounds each interpreter version probe.
	ProbeTimeout time.Duration
	// RunTimeout bounds the generated program's execution.
	RunTimeout time.Duration
}

// NewCodeGenStrategy constructs a CodeGenStrategy with the default
// probe/run timeouts (5s probe, 30s run).
func NewCodeGenStrategy(model llm.LanguageModel, narrator Narrator) *CodeGenStrategy {
	return &CodeGenStrategy{
		Model:        model,
		Narrator:     narrator,
		ProbeTimeout: 5 * time.Second,
		RunTimeout:   30 * time.Second,
	}
}

// generatedCode is the permissive-parse result of the LM's response.
type generatedCode struct {
	Language    string
	Filename    string
	Directories []string
	Code        string
}

var (
	fieldLine    = regexp.MustCompile(`(?m)^(LANGUAGE|FILENAME|DIRECTORIES):\s*(.*)$`)
	codeBlockTag = regexp.MustCompile("(?s)CODE:\\s*\\n(.*?)\\nEND_CODE")
	fencedBlock  = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")
)

// parseGeneratedCode accepts both the explicit LANGUAGE:/FILENAME:/CODE:
// form and a plain fenced markdown code block, extracting the language
// from the fence tag when not explicitly stated.
func parseGeneratedCode(raw string) (generatedCode, error) {
	var gc generatedCode

	for _, m := range fieldLine.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], strings.TrimSpace(m[2])
		switch key {
		case "LANGUAGE":
			gc.Language = val
		case "FILENAME":
			gc.Filename = val
		case "DIRECTORIES":
			if val != "" {
				for _, d := range strings.Split(val, ",") {
					if d = strings.TrimSpace(d); d != "" {
						gc.Directories = append(gc.Directories, d)
					}
				}
			}
		}
	}

	if m := codeBlockTag.FindStringSubmatch(raw); m != nil {
		gc.Code = m[1]
	} else if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		gc.Code = m[2]
		if gc.Language == "" {
			gc.Language = m[1]
		}
	}

	if gc.Code == "" {
		return gc, agentcore.NewValidationError("code", "language model response contained no CODE block or fenced code block")
	}
	if gc.Filename == "" {
		return gc, agentcore.NewValidationError("filename", "language model response did not specify a FILENAME")
	}
	return gc, nil
}

// interpreterCandidates lists the interpreters tried in order for a
// generated-code language, probing each in turn to discover a working
// one.
var interpreterCandidates = map[string][]string{
	"python": {"python3", "python", "py"},
	"py":     {"python3", "python", "py"},
	"lua":    {"lua", "lua5.4", "lua5.3"},
}

// probeInterpreter tries each candidate's "--version" (or "-v" for lua) in
// order, returning the first one that responds within ProbeTimeout.
func (s *CodeGenStrategy) probeInterpreter(ctx context.Context, language string) (string, bool) {
	candidates, ok := interpreterCandidates[strings.ToLower(language)]
	if !ok {
		return "", false
	}
	for _, bin := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, s.ProbeTimeout)
		versionFlag := "--version"
		if bin == "lua" || strings.HasPrefix(bin, "lua") {
			versionFlag = "-v"
		}
		err := exec.CommandContext(probeCtx, bin, versionFlag).Run()
		cancel()
		if err == nil {
			return bin, true
		}
	}
	return "", false
}

// Execute implements Strategy.
func (s *CodeGenStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		spec, err := requireParam(task, "specification")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		if s.Narrator != nil {
			s.Narrator.Narrate("agent generating code from specification")
		}

		const codegenSystemPrompt = "Produce exactly: LANGUAGE:, FILENAME:, DIRECTORIES:, then either a CODE: ... END_CODE block or a fenced markdown code block."
		raw, _, err := s.Model.Ask(ctx, codegenSystemPrompt, spec, nil)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		gc, err := parseGeneratedCode(raw)
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		workDir := task.Context.WorkingDirectory
		for _, dir := range gc.Directories {
			if err := os.MkdirAll(filepath.Join(workDir, dir), 0o755); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
		}

		targetPath := filepath.Join(workDir, gc.Filename)
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		if err := os.WriteFile(targetPath, []byte(gc.Code), 0o644); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		result := agentcore.TaskResult{
			Success:      true,
			Output:       fmt.Sprintf("generated %s (%s)", gc.Filename, gc.Language),
			FilesCreated: []string{targetPath},
			Artifacts:    map[string]any{"language": gc.Language},
		}

		if bin, ok := s.probeInterpreter(ctx, gc.Language); ok {
			runCtx, cancel := context.WithTimeout(ctx, s.RunTimeout)
			defer cancel()

			if s.Narrator != nil {
				s.Narrator.Narrate(fmt.Sprintf("agent executing generated file with %s: %s", bin, targetPath))
			}

			cmd := exec.CommandContext(runCtx, bin, targetPath)
			cmd.Dir = workDir
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			runErr := cmd.Run()

			result.CommandsExecuted = []string{fmt.Sprintf("%s %s", bin, gc.Filename)}
			result.Output += "\n--- execution output ---\n" + stdout.String()
			if runErr != nil {
				result.Output += "\n--- execution error ---\n" + stderr.String()
			}
		}

		return result, nil
	})
}
