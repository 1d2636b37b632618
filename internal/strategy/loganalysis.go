package strategy

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/harrison/agentcore/internal/agentcore"
)

// LogAnalysisStrategy implements LOG_ANALYSIS: read a text file and count
// lines matching a substring pattern (default "ERROR").
type LogAnalysisStrategy struct {
	Narrator Narrator
}

// NewLogAnalysisStrategy constructs a LogAnalysisStrategy. narrator may be nil.
func NewLogAnalysisStrategy(narrator Narrator) *LogAnalysisStrategy {
	return &LogAnalysisStrategy{Narrator: narrator}
}

// Execute implements Strategy.
func (s *LogAnalysisStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		path, err := requireParam(task, "file_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		pattern := optionalParam(task, "pattern", "ERROR")

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent analyzing log file for %q: %s", pattern, path))
		}

		f, err := os.Open(path)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		defer f.Close()

		count := 0
		var matches []string
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, pattern) {
				count++
				matches = append(matches, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		return agentcore.TaskResult{
			Success:   true,
			Output:    fmt.Sprintf("found %d lines matching %q in %s", count, pattern, path),
			Metrics:   map[string]float64{"match_count": float64(count)},
			Artifacts: map[string]any{"matches": matches},
		}, nil
	})
}
