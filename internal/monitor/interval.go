package monitor

import (
	"strings"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// DefaultInterval is used when a trigger's Interval field is empty or fails
// to parse, so a misconfigured trigger degrades to a slow poll rather than
// a tight busy loop.
const DefaultInterval = time.Minute

// parseInterval accepts "Ns"/"Nm"/"Nh"/"N ms" shorthand. Go's
// time.ParseDuration already understands all of those unit suffixes; the
// only adaptation needed is tolerating a space before the unit.
func parseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	return time.ParseDuration(s)
}

// startIntervalTrigger launches a ticker goroutine for interval,
// system_metric, and log_pattern triggers, all of which spec.md defines as
// "fire on a fixed tick" with the metric/pattern check itself left to the
// action strategy the trigger submits.
func (m *Monitor) startIntervalTrigger(trig agentcore.Trigger) {
	interval, err := parseInterval(trig.Interval)
	if err != nil || interval <= 0 {
		interval = DefaultInterval
	}

	m.intervalWg.Add(1)
	go func() {
		defer m.intervalWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.fire(trig, "")
			}
		}
	}()
}
