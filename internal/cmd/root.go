// Package cmd implements the agent's CLI surface with cobra, one subcommand
// file per verb group: cobra.Command per verb, flags read with
// cmd.Flags().Get*, errors returned (not printed) so cobra's RunE handles
// display and exit-code plumbing consistently.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the CLI's version string; cmd/agentcore/main.go overwrites it
// with its own Version constant.
var Version = "dev"

// NewRootCommand creates the root cobra command for the agent CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentcore",
		Short: "Autonomous developer-assistant agent",
		Long: `agentcore runs a continuously-operating developer assistant: a
priority- and dependency-gated task queue, a file/schedule/metric-driven
monitor that synthesizes tasks from triggers, a ReAct planner that
decomposes natural-language goals into executable subtasks, and a remote
tool manager that dispatches tool calls to MCP-style servers over HTTP,
SSE, or WebSocket.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAgentStartCommand())
	cmd.AddCommand(NewAgentStopCommand())
	cmd.AddCommand(NewAgentStatusCommand())
	cmd.AddCommand(NewAgentTaskCommand())
	cmd.AddCommand(NewAgentTasksCommand())
	cmd.AddCommand(NewAgentClearCommand())
	cmd.AddCommand(NewAgentPlanCommand())
	cmd.AddCommand(NewAgentConfigCommand())
	cmd.AddCommand(NewMCPCommand())

	return cmd
}
