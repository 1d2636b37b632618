package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMCPServer implements just enough of the HTTP transport's endpoint
// mapping to exercise Manager end to end.
func fakeMCPServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp/initialize", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(t, w, req.ID, InitializeResult{ProtocolVersion: ProtocolVersion})
	})
	mux.HandleFunc("/mcp/tools/list", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(t, w, req.ID, map[string]any{
			"tools": []ToolDescriptor{{Name: "search", Description: "search the web"}},
		})
	})
	mux.HandleFunc("/mcp/tools/call", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(t, w, req.ID, ToolCallResult{Content: []ContentItem{{Type: "text", Text: "ok"}}})
	})
	mux.HandleFunc("/mcp/ping", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(t, w, req.ID, map[string]any{})
	})
	return httptest.NewServer(mux)
}

func writeResult(t *testing.T, w http.ResponseWriter, id int64, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	resp := Response{JSONRPC: "2.0", ID: id, Result: raw}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestManagerConnectAndListAllTools(t *testing.T) {
	srv := fakeMCPServer(t)
	defer srv.Close()

	m := NewManager()
	server := &agentcore.RemoteServer{ID: "primary", URL: srv.URL, Enabled: true, Priority: 1}
	require.NoError(t, m.Connect(t.Context(), server))
	assert.True(t, server.Initialized)

	tools, err := m.ListAllTools(t.Context())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].Name)
	assert.Equal(t, "primary", tools[0].ServerID)
}

func TestManagerCallToolFailsOverToNextServer(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer badSrv.Close()
	goodSrv := fakeMCPServer(t)
	defer goodSrv.Close()

	m := NewManager()
	require.NoError(t, m.Connect(t.Context(), &agentcore.RemoteServer{ID: "bad", URL: badSrv.URL, Enabled: true, Priority: 2}))
	require.NoError(t, m.Connect(t.Context(), &agentcore.RemoteServer{ID: "good", URL: goodSrv.URL, Enabled: true, Priority: 1}))

	text, err := m.CallTool(t.Context(), "search", map[string]any{"q": "go"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestManagerPingAndDisconnect(t *testing.T) {
	srv := fakeMCPServer(t)
	defer srv.Close()

	m := NewManager()
	server := &agentcore.RemoteServer{ID: "primary", URL: srv.URL, Enabled: true, Priority: 1}
	require.NoError(t, m.Connect(t.Context(), server))

	require.NoError(t, m.Ping(t.Context(), "primary"))
	require.NoError(t, m.Disconnect("primary"))
	assert.Empty(t, m.GetServerStatus())
}
