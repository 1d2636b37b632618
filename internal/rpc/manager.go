package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/harrison/agentcore/internal/agentcore"
)

// Transport is the wire-level seam HTTPTransport, SSETransport, and
// WSTransport all satisfy. The Manager talks to a server exclusively
// through this interface, so swapping a server's transport never touches
// call sites.
type Transport interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Close() error
}

// connection is one configured server's live transport plus its descriptor.
type connection struct {
	server    *agentcore.RemoteServer
	transport Transport
	mu        sync.Mutex // guards server's runtime fields
}

// Manager is the Remote Tool Manager: it owns one Transport per configured
// server, keeps each server's capability/error state current, and exposes
// the aggregate operations the planner and the REMOTE_* strategies need.
type Manager struct {
	mu    sync.Mutex
	conns map[string]*connection
}

// NewManager constructs an empty Manager. Servers are added with Connect.
func NewManager() *Manager {
	return &Manager{conns: make(map[string]*connection)}
}

// transportKind selects a transport scheme from a server URL's prefix:
// "ws://"/"wss://" dials a WebSocket, "sse+" dials SSE, everything else
// uses plain HTTP POST.
func transportKind(url string) string {
	switch {
	case strings.HasPrefix(url, "ws://"), strings.HasPrefix(url, "wss://"):
		return "ws"
	case strings.HasPrefix(url, "sse+"):
		return "sse"
	default:
		return "http"
	}
}

func dial(ctx context.Context, server *agentcore.RemoteServer) (Transport, error) {
	switch transportKind(server.URL) {
	case "ws":
		return NewWSTransport(ctx, server.URL, server.Headers)
	case "sse":
		base := strings.TrimPrefix(server.URL, "sse+")
		return NewSSETransport(ctx, base, server.ID, server.Headers)
	default:
		return NewHTTPTransport(server.URL, server.Headers, server.ConnectTimeout, server.ReadTimeout), nil
	}
}

// Connect dials server and performs the MCP initialize handshake, recording
// the negotiated capabilities on the server record.
func (m *Manager) Connect(ctx context.Context, server *agentcore.RemoteServer) error {
	transport, err := dial(ctx, server)
	if err != nil {
		server.LastError = err.Error()
		return agentcore.NewRemoteProtocolError(server.ID, "connect", err)
	}

	conn := &connection{server: server, transport: transport}

	m.mu.Lock()
	if existing, ok := m.conns[server.ID]; ok {
		existing.transport.Close()
	}
	m.conns[server.ID] = conn
	m.mu.Unlock()

	raw, err := transport.Call(ctx, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]string{"name": "agentcore", "version": "1"},
	})
	if err != nil {
		conn.mu.Lock()
		server.LastError = err.Error()
		conn.mu.Unlock()
		return agentcore.NewRemoteProtocolError(server.ID, "initialize", err)
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return agentcore.NewRemoteProtocolError(server.ID, "initialize", err)
	}

	conn.mu.Lock()
	server.Initialized = true
	server.ServerCapabilities = result.Capabilities
	server.LastError = ""
	conn.mu.Unlock()
	return nil
}

// Reconnect implements strategy.ServerAdmin: tear down and re-establish the
// named server's transport.
func (m *Manager) Reconnect(ctx context.Context, serverID string) error {
	m.mu.Lock()
	conn, ok := m.conns[serverID]
	m.mu.Unlock()
	if !ok {
		return agentcore.NewRemoteProtocolError(serverID, "reconnect", fmt.Errorf("unknown server"))
	}
	return m.Connect(ctx, conn.server)
}

// Disconnect implements strategy.ServerAdmin.
func (m *Manager) Disconnect(serverID string) error {
	m.mu.Lock()
	conn, ok := m.conns[serverID]
	delete(m.conns, serverID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	conn.mu.Lock()
	conn.server.Initialized = false
	conn.mu.Unlock()
	return conn.transport.Close()
}

// DisconnectAll tears down every configured server's transport.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Disconnect(id)
	}
}

// Ping implements strategy.ServerAdmin.
func (m *Manager) Ping(ctx context.Context, serverID string) error {
	conn, err := m.connFor(serverID)
	if err != nil {
		return err
	}
	_, callErr := conn.transport.Call(ctx, "ping", nil)
	if callErr != nil {
		conn.mu.Lock()
		conn.server.LastError = callErr.Error()
		conn.mu.Unlock()
		return agentcore.NewRemoteProtocolError(serverID, "ping", callErr)
	}
	return nil
}

func (m *Manager) connFor(serverID string) (*connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[serverID]
	if !ok {
		return nil, agentcore.NewRemoteProtocolError(serverID, "lookup", fmt.Errorf("server not connected"))
	}
	return conn, nil
}

// connectedServers returns connections ordered by descending configured
// priority, the order ListAllTools and CallTool's failover walk them in.
func (m *Manager) connectedServers() []*connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := make([]*connection, 0, len(m.conns))
	for _, c := range m.conns {
		if c.server.Enabled {
			conns = append(conns, c)
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].server.Priority > conns[j].server.Priority })
	return conns
}

// ListAllTools aggregates tools/list across every connected, enabled
// server, tagging each descriptor with the server it came from.
func (m *Manager) ListAllTools(ctx context.Context) ([]ToolDescriptor, error) {
	var all []ToolDescriptor
	var lastErr error
	for _, conn := range m.connectedServers() {
		raw, err := conn.transport.Call(ctx, "tools/list", nil)
		if err != nil {
			lastErr = agentcore.NewRemoteProtocolError(conn.server.ID, "tools/list", err)
			continue
		}
		var listed struct {
			Tools []ToolDescriptor `json:"tools"`
		}
		if err := json.Unmarshal(raw, &listed); err != nil {
			lastErr = agentcore.NewRemoteProtocolError(conn.server.ID, "tools/list", err)
			continue
		}
		for i := range listed.Tools {
			listed.Tools[i].ServerID = conn.server.ID
		}
		all = append(all, listed.Tools...)
	}
	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// CallTool implements strategy.ToolCaller: it calls name on the
// highest-priority server, falling back to the next enabled server on
// failure, per spec.md's failover requirement for REMOTE_TOOL_CALL.
func (m *Manager) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	conns := m.connectedServers()
	if len(conns) == 0 {
		return "", agentcore.NewRemoteProtocolError("", "tools/call", fmt.Errorf("no remote tool servers configured"))
	}

	var lastErr error
	for _, conn := range conns {
		raw, err := conn.transport.Call(ctx, "tools/call", map[string]any{
			"name":      name,
			"arguments": arguments,
		})
		if err != nil {
			lastErr = agentcore.NewRemoteProtocolError(conn.server.ID, "tools/call", err)
			continue
		}
		var result ToolCallResult
		if err := json.Unmarshal(raw, &result); err != nil {
			lastErr = agentcore.NewRemoteProtocolError(conn.server.ID, "tools/call", err)
			continue
		}
		if result.IsError {
			lastErr = agentcore.NewRemoteProtocolError(conn.server.ID, "tools/call", fmt.Errorf("%s", result.Text()))
			continue
		}
		return result.Text(), nil
	}
	return "", lastErr
}

// PingAll pings every configured server and returns the per-server error,
// if any, so the caller can build an overall status report.
func (m *Manager) PingAll(ctx context.Context) map[string]error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	results := make(map[string]error, len(ids))
	for _, id := range ids {
		results[id] = m.Ping(ctx, id)
	}
	return results
}

// GetServerStatus returns a snapshot of every configured server's record.
func (m *Manager) GetServerStatus() []agentcore.RemoteServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agentcore.RemoteServer, 0, len(m.conns))
	for _, conn := range m.conns {
		conn.mu.Lock()
		out = append(out, *conn.server)
		conn.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
