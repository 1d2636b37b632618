package monitor

import (
	"fmt"
	"runtime"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// Built-in job cadence, per spec.md §4.6: a health check every minute after
// a short initial delay, and a resource sample every 30s after a shorter
// one, so the two don't contend for the same tick.
const (
	healthCheckInterval   = 60 * time.Second
	healthCheckDelay      = 30 * time.Second
	resourceCheckInterval = 30 * time.Second
	resourceCheckDelay    = 10 * time.Second
)

// startBuiltins launches the two jobs every agent runs regardless of
// configured triggers: a periodic health check task and a periodic
// resource-usage sample. Both are synthesized the same way a configured
// trigger would be, so they flow through the same dispatcher/logging path.
func (m *Monitor) startBuiltins() {
	m.intervalWg.Add(1)
	go m.runBuiltin("builtin:health-check", healthCheckDelay, healthCheckInterval, agentcore.KindHealthCheck)

	m.intervalWg.Add(1)
	go m.runBuiltin("builtin:resource-monitor", resourceCheckDelay, resourceCheckInterval, agentcore.KindSystemMonitoring)
}

func (m *Monitor) runBuiltin(name string, delay, interval time.Duration, kind agentcore.TaskKind) {
	defer m.intervalWg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-m.stopCh:
		return
	case <-timer.C:
	}

	trig := agentcore.Trigger{Name: name, Type: agentcore.TriggerInterval, Action: kind}
	m.fire(trig, m.resourceSnapshot())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.fire(trig, m.resourceSnapshot())
		}
	}
}

// resourceSnapshot reports goroutine count and heap usage via runtime,
// since none of the pack's dependencies offer an OS-metrics client; this is
// the one piece of the monitor grounded directly on the standard library
// rather than an example call site.
func (m *Monitor) resourceSnapshot() string {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return fmt.Sprintf("goroutines=%d heap_alloc_bytes=%d", runtime.NumGoroutine(), stats.HeapAlloc)
}
