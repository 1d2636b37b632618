// Package monitor implements the Continuous Monitor: a set of configured
// triggers (filesystem changes, cron schedules, fixed intervals, system
// metrics, log patterns) plus two built-in jobs (health check, resource
// monitor) that synthesize tasks and hand them to the Task Queue. The
// filesystem leg uses debounced fsnotify event processing; the scheduled
// leg uses github.com/robfig/cron for cron-expression triggers.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/harrison/agentcore/internal/agentcore"
)

// DefaultShutdownTimeout bounds how long Stop waits for in-flight trigger
// goroutines before returning anyway.
const DefaultShutdownTimeout = 3 * time.Second

// Submitter is the slice of the Task Queue the monitor needs: hand it a
// synthesized task.
type Submitter interface {
	Submit(task *agentcore.Task) (string, error)
}

// Narrator receives the monitor's human-readable narration lines.
type Narrator interface {
	Narrate(line string)
}

// Monitor owns every configured trigger's background goroutine and the two
// built-in jobs. The zero value is not usable; construct with New.
type Monitor struct {
	submitter Submitter
	narrator  Narrator

	shutdownTimeout time.Duration

	cron       *cron.Cron
	fileWatch  *fileWatchSet
	intervalWg sync.WaitGroup
	stopCh     chan struct{}

	mu      sync.Mutex
	started bool
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.shutdownTimeout = d }
}

// New constructs a Monitor. submitter and narrator must not be nil;
// narrator may be a no-op implementation.
func New(submitter Submitter, narrator Narrator, opts ...Option) *Monitor {
	m := &Monitor{
		submitter:       submitter,
		narrator:        narrator,
		shutdownTimeout: DefaultShutdownTimeout,
		cron:            cron.New(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// narrate is a nil-safe wrapper so triggers don't need to nil-check.
func (m *Monitor) narrate(format string, args ...any) {
	if m.narrator != nil {
		m.narrator.Narrate(fmt.Sprintf(format, args...))
	}
}

// fire synthesizes a task of trigger.Action and submits it, per spec.md
// §4.6: description = "Triggered by: <trigger.name>", with the trigger's
// configured Command surfaced as a parameter when the action kind expects
// one.
func (m *Monitor) fire(trigger agentcore.Trigger, contextLine string) {
	task := agentcore.New(trigger.Action, agentcore.PriorityMedium)
	task.Description = fmt.Sprintf("Triggered by: %s", trigger.Name)
	task.Context.TriggerSource = trigger.Name
	task.Context.Metadata = map[string]any{
		"trigger":      trigger.Name,
		"trigger_type": string(trigger.Type),
		"context":      contextLine,
		"timestamp":    time.Now(),
	}
	if trigger.Command != "" {
		task.Parameters["command"] = trigger.Command
		task.Context.Metadata["command"] = trigger.Command
	}
	if contextLine != "" {
		task.Parameters["trigger_context"] = contextLine
	}

	id, err := m.submitter.Submit(task)
	if err != nil {
		m.narrate("trigger %s: submit failed: %v", trigger.Name, err)
		return
	}
	m.narrate("trigger %s fired: submitted task %s (%s)", trigger.Name, id, trigger.Action)
}

// Start launches every configured trigger plus the two built-in jobs.
// Triggers with an unrecognized Type are skipped with a narrated warning;
// spec.md treats an unknown trigger type as a configuration error surfaced
// at load time, not a fatal condition here.
func (m *Monitor) Start(ctx context.Context, triggers []agentcore.Trigger) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("monitor: already started")
	}
	m.started = true
	m.mu.Unlock()

	fw, err := newFileWatchSet(m)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	m.fileWatch = fw

	for _, trig := range triggers {
		trig := trig
		switch trig.Type {
		case agentcore.TriggerFileChange:
			if err := m.fileWatch.add(trig); err != nil {
				m.narrate("trigger %s: watch %s: %v", trig.Name, trig.Path, err)
			}
		case agentcore.TriggerScheduled:
			if err := m.cron.AddFunc(trig.Schedule, func() { m.fire(trig, "") }); err != nil {
				m.narrate("trigger %s: invalid schedule %q: %v", trig.Name, trig.Schedule, err)
			}
		case agentcore.TriggerInterval, agentcore.TriggerSystemMetric, agentcore.TriggerLogPattern:
			m.startIntervalTrigger(trig)
		default:
			m.narrate("trigger %s: unknown type %q, skipped", trig.Name, trig.Type)
		}
	}

	m.fileWatch.start()
	m.cron.Start()
	m.startBuiltins()
	return nil
}

// Stop signals every trigger goroutine, the cron scheduler, and the file
// watcher to shut down, waiting up to shutdownTimeout before returning
// regardless.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.cron.Stop()
	if m.fileWatch != nil {
		m.fileWatch.close()
	}

	done := make(chan struct{})
	go func() {
		m.intervalWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(m.shutdownTimeout):
		m.narrate("monitor: shutdown timed out after %s, some trigger goroutines may still be running", m.shutdownTimeout)
	}
}
