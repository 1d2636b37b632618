package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/agentfacade"
	"github.com/harrison/agentcore/internal/config"
	"github.com/harrison/agentcore/internal/control"
	"github.com/harrison/agentcore/internal/history"
	"github.com/harrison/agentcore/internal/llm"
	"github.com/harrison/agentcore/internal/logger"
	"github.com/harrison/agentcore/internal/planner"
)

// ErrInterrupted is returned by agent-start when it shuts down because of
// SIGINT or SIGTERM, so main.go can map it to exit code 130 instead of a generic
// runtime-error code.
var ErrInterrupted = errors.New("agent: interrupted")

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	home, err := config.GetAgentHome()
	if err != nil {
		return nil, fmt.Errorf("resolve agent home: %w", err)
	}
	return config.LoadConfig(home + "/config.yaml")
}

// NewAgentStartCommand creates the agent-start command: it builds the
// Agent Façade, starts its control socket, and blocks until signalled.
func NewAgentStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-start",
		Short: "Start the agent and block until stopped",
		Long: `Starts the task queue/dispatcher, continuous monitor, remote tool
manager, and (when an LM backend is configured) the ReAct planner, then
listens on a control socket for agent-status/agent-task/agent-tasks/
agent-clear/agent-plan to talk to. Runs until SIGINT/SIGTERM.`,
		RunE: runAgentStart,
	}
	cmd.Flags().String("config", "", "Path to config file (default: $AGENTCORE_HOME/config.yaml)")
	cmd.Flags().String("log-dir", "", "Directory for log files (default: config.log_dir)")
	cmd.Flags().Bool("verbose", false, "Use debug log level regardless of config")
	return cmd
}

func runAgentStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return agentcore.NewConfigError("", "load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logLevel := cfg.LogLevel
	if verbose {
		logLevel = "debug"
	}
	logDir, _ := cmd.Flags().GetString("log-dir")
	if logDir == "" {
		logDir = cfg.LogDir
	}

	consoleLog := logger.NewConsoleLogger(os.Stdout, logLevel)
	fileLog, err := logger.NewFileLoggerWithDirAndLevel(logDir, logLevel)
	if err != nil {
		return fmt.Errorf("create file logger: %w", err)
	}
	defer fileLog.Close()
	ttsNarrator := logger.NewTTSNarrator(cfg.TTS)
	multiLog := logger.NewMultiLogger(consoleLog, fileLog, ttsNarrator)

	dbPath, err := config.GetHistoryDBPath()
	if err != nil {
		return fmt.Errorf("resolve history db path: %w", err)
	}
	historyStore, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer historyStore.Close()

	auth := llm.NewCLIClient(nil)
	var model llm.LanguageModel = auth
	if !auth.IsReady() {
		model = nil
	}

	agent := agentfacade.New(cfg, multiLog, model, auth, historyStore)

	socketPath, err := config.GetControlSocketPath()
	if err != nil {
		return fmt.Errorf("resolve control socket path: %w", err)
	}
	srv, err := control.Listen(socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	defer srv.Close()
	agent.RegisterControlHandlers(srv)

	home, err := config.GetAgentHome()
	if err != nil {
		return fmt.Errorf("resolve agent home: %w", err)
	}
	pidFile := home + "/agent.pid"
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := agent.Start(ctx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	defer agent.Stop()

	go srv.Serve(ctx)

	multiLog.Narrate(fmt.Sprintf("agent: listening on %s", socketPath))
	<-ctx.Done()

	if ctx.Err() != nil {
		multiLog.Narrate("agent: shutting down")
	}
	return ErrInterrupted
}

// NewAgentStopCommand creates the agent-stop command: it reads the pid that
// agent-start wrote to agent.pid in the agent home directory and sends
// SIGTERM to that process. The control server has no remote-shutdown verb.
func NewAgentStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agent-stop",
		Short: "Stop a running agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := config.GetAgentHome()
			if err != nil {
				return err
			}
			pidFile := pidPath + "/agent.pid"
			data, err := os.ReadFile(pidFile)
			if err != nil {
				return fmt.Errorf("agent-stop: no running agent found (%w)", err)
			}
			pid, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("agent-stop: malformed pid file: %w", err)
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("agent-stop: find process %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("agent-stop: signal process %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to agent (pid %d)\n", pid)
			return nil
		},
	}
}

// NewAgentStatusCommand creates the agent-status command.
func NewAgentStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agent-status",
		Short: "Report the running agent's queue and remote-server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath, err := config.GetControlSocketPath()
			if err != nil {
				return err
			}
			var status agentfacade.Status
			if err := control.Call(socketPath, "status", nil, &status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pending: %d  Running: %d  Total executed: %d\n",
				status.Queue.PendingTasks, status.Queue.RunningTasks, status.Queue.TotalTasksExecuted)
			for st, count := range status.Queue.ByStatus {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", st, count)
			}
			for _, srv := range status.Servers {
				fmt.Fprintf(cmd.OutOrStdout(), "server %s: initialized=%v\n", srv.ID, srv.Initialized)
			}
			return nil
		},
	}
}

// NewAgentTaskCommand creates the agent-task command.
func NewAgentTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-task",
		Short: "Submit a task to the running agent",
		RunE:  runAgentTask,
	}
	cmd.Flags().String("kind", "", "Task kind, e.g. SHELL_COMMAND, FILE_WRITE, AI_ANALYSIS")
	cmd.Flags().String("description", "", "Human-readable task description")
	cmd.Flags().String("command", "", "Shell/script command, when the kind requires one")
	cmd.Flags().Int("priority", int(agentcore.PriorityMedium), "Priority: 1=critical .. 5=background")
	cmd.MarkFlagRequired("kind")
	return cmd
}

func runAgentTask(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	description, _ := cmd.Flags().GetString("description")
	command, _ := cmd.Flags().GetString("command")
	priority, _ := cmd.Flags().GetInt("priority")

	socketPath, err := config.GetControlSocketPath()
	if err != nil {
		return err
	}

	var out map[string]string
	err = control.Call(socketPath, "submitTask", agentfacade.SubmitTaskParams{
		Kind:        kind,
		Description: description,
		Command:     command,
		Priority:    priority,
	}, &out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out["taskId"])
	return nil
}

// NewAgentTasksCommand creates the agent-tasks command.
func NewAgentTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-tasks",
		Short: "List recent tasks",
		RunE:  runAgentTasks,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of tasks to list")
	cmd.Flags().String("status", "", "Filter by status, e.g. RUNNING, COMPLETED")
	return cmd
}

func runAgentTasks(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	status, _ := cmd.Flags().GetString("status")

	socketPath, err := config.GetControlSocketPath()
	if err != nil {
		return err
	}

	var tasks []*agentcore.Task
	if err := control.Call(socketPath, "listTasks", agentfacade.ListTasksParams{Limit: limit, Status: status}, &tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %-20s %s\n", t.ID, t.Status, t.Kind, t.Description)
	}
	return nil
}

// NewAgentClearCommand creates the agent-clear command.
func NewAgentClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agent-clear",
		Short: "Remove completed/failed/cancelled tasks from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath, err := config.GetControlSocketPath()
			if err != nil {
				return err
			}
			var out map[string]int
			if err := control.Call(socketPath, "clearCompleted", nil, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s)\n", out["removed"])
			return nil
		},
	}
}

// NewAgentPlanCommand creates the agent-plan command: it drives the ReAct
// planner from either a free-text --goal or a pre-authored --file markdown
// checklist (one H1 goal heading followed by a "- [ ]" list of subtasks),
// and waits for the whole plan to finish.
func NewAgentPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-plan",
		Short: "Run the ReAct planner on a goal or a markdown plan file",
		RunE:  runAgentPlan,
	}
	cmd.Flags().String("goal", "", "Natural-language goal to decompose and execute")
	cmd.Flags().String("file", "", "Path to a markdown plan file (H1 goal + checklist)")
	return cmd
}

func runAgentPlan(cmd *cobra.Command, args []string) error {
	goal, _ := cmd.Flags().GetString("goal")
	file, _ := cmd.Flags().GetString("file")
	if goal == "" && file == "" {
		return fmt.Errorf("agent-plan: one of --goal or --file is required")
	}

	params := agentfacade.RunPlanParams{Goal: goal}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read plan file: %w", err)
		}
		params.Markdown = string(data)
	}

	socketPath, err := config.GetControlSocketPath()
	if err != nil {
		return err
	}

	var result planner.PlanResult
	if err := control.Call(socketPath, "runPlan", params, &result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Plan outcome: %s\n", result.Outcome)
	return nil
}

// NewAgentConfigCommand creates the agent-config command. Unlike the other
// agent-* verbs, this edits the on-disk config file directly rather than
// talking to a running agent — config changes apply on the next
// agent-start, mirroring how the AGENT_MAX_TASKS/AGENT_INTERVAL_MS env
// overrides are read once at startup rather than hot-reloaded. Only
// --max-tasks is written to the file; --interval, --enable, --disable and
// --auto-save print a note and store nothing.
func NewAgentConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-config",
		Short: "View or edit the agent's configuration file",
		RunE:  runAgentConfig,
	}
	cmd.Flags().Bool("enable", false, "Print a note only; nothing is stored and agent-start does not read AGENT_MODE")
	cmd.Flags().Bool("disable", false, "Print a note only; nothing is stored and agent-start does not read AGENT_MODE")
	cmd.Flags().Int("max-tasks", 0, "Set agent.max_concurrent")
	cmd.Flags().Int("interval", 0, "Print a note only; the default monitor interval comes from AGENT_INTERVAL_MS")
	cmd.Flags().Bool("auto-save", false, "Print a note only; nothing is stored and agent-start does not read AGENT_AUTO_SAVE")
	return cmd
}

func runAgentConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	changed := false
	if cmd.Flags().Changed("max-tasks") {
		v, _ := cmd.Flags().GetInt("max-tasks")
		cfg.Agent.MaxConcurrent = v
		changed = true
	}
	if cmd.Flags().Changed("interval") {
		v, _ := cmd.Flags().GetInt("interval")
		fmt.Fprintf(cmd.OutOrStdout(), "Note: the monitor interval is not stored in the config file; AGENT_INTERVAL_MS=%d at agent-start applies it to triggers without an explicit interval.\n", v)
		changed = true
	}
	if cmd.Flags().Changed("enable") || cmd.Flags().Changed("disable") {
		fmt.Fprintf(cmd.OutOrStdout(), "Note: enable/disable is not stored, and agent-start does not read AGENT_MODE.\n")
	}
	if cmd.Flags().Changed("auto-save") {
		fmt.Fprintf(cmd.OutOrStdout(), "Note: auto-save is not stored, and agent-start does not read AGENT_AUTO_SAVE.\n")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "max_concurrent=%d default_timeout=%s default_max_retries=%d\n",
			cfg.Agent.MaxConcurrent, cfg.Agent.DefaultTimeout, cfg.Agent.DefaultMaxRetries)
		return nil
	}

	home, err := config.GetAgentHome()
	if err != nil {
		return err
	}
	return cfg.Save(home + "/config.yaml")
}
