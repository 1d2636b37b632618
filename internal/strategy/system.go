package strategy

import (
	"context"
	"fmt"
	"runtime"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
)

// HealthChecker reports the readiness of collaborators the SYSTEM_MONITORING
// and HEALTH_CHECK strategies sample.
type HealthChecker interface {
	// RemoteServerStatus returns server id -> connected.
	RemoteServerStatus() map[string]bool
}

// SystemStrategy implements SYSTEM, SYSTEM_MONITORING, and HEALTH_CHECK. It
// samples runtime memory/processor counts and collaborator readiness; it
// carries no side effects of its own, so the generic SYSTEM kind is handled
// identically to the HEALTH_CHECK and SYSTEM_MONITORING kinds the Monitor's
// built-in triggers submit.
type SystemStrategy struct {
	Auth     llm.Auth
	Health   HealthChecker
	Narrator Narrator
}

// NewSystemStrategy constructs a SystemStrategy. auth and health may be nil.
func NewSystemStrategy(auth llm.Auth, health HealthChecker, narrator Narrator) *SystemStrategy {
	return &SystemStrategy{Auth: auth, Health: health, Narrator: narrator}
}

// Execute implements Strategy.
func (s *SystemStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent sampling system health (%s)", task.Kind))
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		metrics := map[string]float64{
			"alloc_bytes":      float64(mem.Alloc),
			"sys_bytes":        float64(mem.Sys),
			"num_goroutine":    float64(runtime.NumGoroutine()),
			"num_cpu":          float64(runtime.NumCPU()),
		}

		artifacts := map[string]any{}
		lmReady := true
		if s.Auth != nil {
			lmReady = s.Auth.IsReady()
		}
		artifacts["lm_ready"] = lmReady

		if s.Health != nil {
			artifacts["remote_servers"] = s.Health.RemoteServerStatus()
		}

		return agentcore.TaskResult{
			Success:   true,
			Output:    fmt.Sprintf("goroutines=%d alloc=%dB lm_ready=%v", runtime.NumGoroutine(), mem.Alloc, lmReady),
			Metrics:   metrics,
			Artifacts: artifacts,
		}, nil
	})
}
