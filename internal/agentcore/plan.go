package agentcore

// Subtask is one step of a Plan produced by the ReAct planner's
// decomposition phase.
type Subtask struct {
	Description     string
	ExpectedOutcome string
	Priority        Priority
	Complexity      string
	Dependencies    []int // ordinal positions within the plan
	FilePath        string
	FileContent     string
	Commands        []string

	// Runtime linkage, filled in as the subtask executes.
	TaskID string
	Status Status
}

// Plan is an ordered, dependency-linked sequence of subtasks derived from a
// natural-language goal, plus the shared working memory the ReAct cycles
// accumulate.
type Plan struct {
	Goal          string
	Subtasks      []Subtask
	Strategy      string // free-text execution order / risk / mitigation notes
	WorkingMemory map[string]string
}

// NewPlan creates an empty plan for goal with initialized working memory.
func NewPlan(goal string) *Plan {
	return &Plan{Goal: goal, WorkingMemory: map[string]string{}}
}

// AllTerminal reports whether every subtask has reached a terminal status.
func (p *Plan) AllTerminal() bool {
	for _, s := range p.Subtasks {
		if !s.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Succeeded reports whether every subtask completed successfully.
func (p *Plan) Succeeded() bool {
	for _, s := range p.Subtasks {
		if s.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// RemoteServer describes one configured MCP endpoint and its runtime state.
type RemoteServer struct {
	ID             string
	URL            string
	Name           string
	Enabled        bool
	Priority       int
	Headers        map[string]string
	ConnectTimeout int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds

	// Runtime state.
	Initialized         bool
	ServerCapabilities  map[string]any
	LastError           string
}

// TriggerType is the closed set of monitor trigger kinds.
type TriggerType string

const (
	TriggerFileChange   TriggerType = "file_change"
	TriggerScheduled    TriggerType = "scheduled"
	TriggerInterval     TriggerType = "interval"
	TriggerSystemMetric TriggerType = "system_metric"
	TriggerLogPattern   TriggerType = "log_pattern"
)

// Trigger is a configured event source the Monitor watches; when it fires
// it synthesizes a Task of the configured Action kind.
type Trigger struct {
	Name      string
	Type      TriggerType
	Path      string // file_change: directory to watch
	Pattern   string // file_change/log_pattern: regex
	Schedule  string // scheduled: cron expression
	Interval  string // interval: "Ns"|"Nm"|"Nh"|"N ms"
	Threshold float64
	Action    TaskKind
	Command   string
}
