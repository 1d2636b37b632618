package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/config"
	"github.com/harrison/agentcore/internal/rpc"
)

// mcpClientConfig is the "client" object of the MCP configuration file.
type mcpClientConfig struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	ConnectTimeout int    `json:"connectTimeout"`
	ReadTimeout    int    `json:"readTimeout"`
	WriteTimeout   int    `json:"writeTimeout"`
}

// mcpServerConfig is one entry of the MCP configuration file's "servers" map.
type mcpServerConfig struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	Enabled     bool              `json:"enabled"`
	Priority    int               `json:"priority"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// mcpFile is the on-disk JSON shape spec.md §6 defines for MCP configuration.
type mcpFile struct {
	Client  mcpClientConfig            `json:"client"`
	Servers map[string]mcpServerConfig `json:"servers"`
}

func defaultMCPFile() mcpFile {
	return mcpFile{
		Client: mcpClientConfig{
			Name: "agentcore", Version: "1.0.0",
			ConnectTimeout: 10, ReadTimeout: 30, WriteTimeout: 10,
		},
		Servers: map[string]mcpServerConfig{},
	}
}

func loadMCPFile(path string) (mcpFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mcpFile{}, fmt.Errorf("read mcp config %s: %w", path, err)
	}
	var f mcpFile
	if err := json.Unmarshal(data, &f); err != nil {
		return mcpFile{}, agentcore.NewConfigError(path, "parse mcp config", err)
	}
	return f, nil
}

func saveMCPFile(path string, f mcpFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mcp config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return agentcore.NewConfigError(path, "write mcp config", err)
	}
	return nil
}

func validateMCPFile(f mcpFile) error {
	if f.Client.Name == "" {
		return agentcore.NewConfigError("", "mcp config: client.name must not be empty", nil)
	}
	for id, srv := range f.Servers {
		if srv.URL == "" {
			return agentcore.NewConfigError("", fmt.Sprintf("mcp config: servers[%s].url must not be empty", id), nil)
		}
	}
	return nil
}

func mcpPathFlag(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("file")
	if path != "" {
		return path, nil
	}
	return config.GetMCPConfigPath()
}

// toRemoteServer converts one configured server entry to the
// agentcore.RemoteServer the rpc.Manager dials.
func toRemoteServer(id string, s mcpServerConfig) *agentcore.RemoteServer {
	return &agentcore.RemoteServer{
		ID: id, Name: s.Name, URL: s.URL, Enabled: s.Enabled, Priority: s.Priority,
		Headers: s.Headers, ConnectTimeout: 10, ReadTimeout: 30, WriteTimeout: 10,
	}
}

// buildManager connects to every enabled server in f, continuing past
// per-server connect failures so one unreachable server doesn't block the
// rest (mirrors the manager's own failover design for tool calls).
func buildManager(ctx context.Context, cmd *cobra.Command, f mcpFile) (*rpc.Manager, []error) {
	manager := rpc.NewManager()
	var errs []error
	for id, s := range f.Servers {
		if !s.Enabled {
			continue
		}
		if err := manager.Connect(ctx, toRemoteServer(id, s)); err != nil {
			errs = append(errs, fmt.Errorf("server %s: %w", id, err))
			fmt.Fprintf(cmd.OutOrStderr(), "Warning: failed to connect to %s: %v\n", id, err)
		}
	}
	return manager, errs
}

// NewMCPCommand creates the "mcp" command group: remote tool server
// configuration and ad hoc connectivity testing, independent of a running
// agent-start process.
func NewMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage remote tool (MCP-style) server configuration and connectivity",
	}
	cmd.PersistentFlags().String("file", "", "MCP config file path (default: $AGENTCORE_HOME/mcp.json)")

	cmd.AddCommand(newMCPConfigCommand())
	cmd.AddCommand(newMCPInitCommand())
	cmd.AddCommand(newMCPPingCommand())
	cmd.AddCommand(newMCPToolsCommand())
	cmd.AddCommand(newMCPCallCommand())
	cmd.AddCommand(newMCPSSECommand())
	cmd.AddCommand(newMCPWSCommand())
	cmd.AddCommand(newMCPStatusCommand())
	cmd.AddCommand(newMCPDisconnectCommand())
	return cmd
}

func newMCPConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Show, load, create, validate, or save the MCP config file"}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved MCP config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(f, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "load <path>",
		Short: "Load and print an MCP config file from an explicit path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadMCPFile(args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(f, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Write a default MCP config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			if err := saveMCPFile(path, defaultMCPFile()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the MCP config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			if err := validateMCPFile(f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d server(s))\n", path, len(f.Servers))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Re-save the MCP config file (normalizes formatting)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			if err := saveMCPFile(path, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	})

	return cfgCmd
}

func newMCPInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <server-id>",
		Short: "Connect to one configured server and perform the MCP handshake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			srv, ok := f.Servers[args[0]]
			if !ok {
				return fmt.Errorf("mcp init: server %q not found in %s", args[0], path)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager := rpc.NewManager()
			if err := manager.Connect(ctx, toRemoteServer(args[0], srv)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", args[0])
			return nil
		},
	}
}

func newMCPPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping [server-id]",
		Short: "Ping one or all configured servers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager, _ := buildManager(ctx, cmd, f)

			results := manager.PingAll(ctx)
			failed := 0
			for id, err := range results {
				if len(args) > 0 && args[0] != id {
					continue
				}
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: FAIL (%v)\n", id, err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", id)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d server(s) failed to respond", failed)
			}
			return nil
		},
	}
}

func newMCPToolsCommand() *cobra.Command {
	toolsCmd := &cobra.Command{Use: "tools", Short: "Inspect remote tools"}
	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tools across every connected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager, _ := buildManager(ctx, cmd, f)

			tools, err := manager.ListAllTools(ctx)
			if err != nil {
				return err
			}
			for _, t := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ServerID, t.Name, t.Description)
			}
			return nil
		},
	})
	return toolsCmd
}

func newMCPCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Call a remote tool by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runMCPCall,
	}
	cmd.Flags().String("args", "{}", "JSON object of tool call arguments")
	return cmd
}

func runMCPCall(cmd *cobra.Command, args []string) error {
	path, err := mcpPathFlag(cmd)
	if err != nil {
		return err
	}
	f, err := loadMCPFile(path)
	if err != nil {
		return err
	}
	argsJSON, _ := cmd.Flags().GetString("args")
	var arguments map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &arguments); err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	manager, _ := buildManager(ctx, cmd, f)

	result, err := manager.CallTool(ctx, args[0], arguments)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

// newMCPSSECommand forces the sse+ transport prefix onto the server's
// configured URL so init/ping exercise SSETransport specifically, useful
// when a server is reachable over both HTTP and SSE and the operator wants
// to confirm the SSE leg.
func newMCPSSECommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sse <server-id>",
		Short: "Connect to one server forcing the SSE transport",
		Args:  cobra.ExactArgs(1),
		RunE:  forceTransportRunE("sse+"),
	}
}

// newMCPWSCommand forces the ws:// transport onto the server's configured
// URL, exercising WSTransport specifically.
func newMCPWSCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ws <server-id>",
		Short: "Connect to one server forcing the WebSocket transport",
		Args:  cobra.ExactArgs(1),
		RunE:  forceTransportRunE("ws://"),
	}
}

func forceTransportRunE(prefix string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, err := mcpPathFlag(cmd)
		if err != nil {
			return err
		}
		f, err := loadMCPFile(path)
		if err != nil {
			return err
		}
		srv, ok := f.Servers[args[0]]
		if !ok {
			return fmt.Errorf("server %q not found in %s", args[0], path)
		}
		rs := toRemoteServer(args[0], srv)
		if !strings.HasPrefix(rs.URL, "ws://") && !strings.HasPrefix(rs.URL, "wss://") && !strings.HasPrefix(rs.URL, "sse+") {
			if prefix == "sse+" {
				rs.URL = prefix + rs.URL
			} else {
				rs.URL = prefix + strings.TrimPrefix(rs.URL, "http://")
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager := rpc.NewManager()
		if err := manager.Connect(ctx, rs); err != nil {
			return err
		}
		if err := manager.Ping(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%s)\n", args[0], rs.URL)
		return nil
	}
}

func newMCPStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status for every configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager, _ := buildManager(ctx, cmd, f)

			for _, srv := range manager.GetServerStatus() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tinitialized=%v\tlastError=%q\n", srv.ID, srv.Initialized, srv.LastError)
			}
			return nil
		},
	}
}

func newMCPDisconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <server-id>",
		Short: "Disconnect one configured server (the CLI's own ephemeral connection)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpPathFlag(cmd)
			if err != nil {
				return err
			}
			f, err := loadMCPFile(path)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager, _ := buildManager(ctx, cmd, f)
			if err := manager.Disconnect(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disconnected %s\n", args[0])
			return nil
		},
	}
}
