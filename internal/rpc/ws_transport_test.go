package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoMCPWSServer upgrades every connection and echoes back a canned
// tools/call result for any request it receives, tagged with the request's
// id so WSTransport's correlator has something real to match against.
func echoMCPWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			result, _ := json.Marshal(ToolCallResult{Content: []ContentItem{{Type: "text", Text: "ws-ok"}}})
			resp := Response{JSONRPC: "2.0", ID: req.ID, Result: result}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
}

func TestWSTransportRoundTrip(t *testing.T) {
	srv := echoMCPWSServer(t)
	defer srv.Close()

	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	transport, err := NewWSTransport(t.Context(), wsBase, nil)
	require.NoError(t, err)
	defer transport.Close()

	raw, err := transport.Call(t.Context(), "tools/call", map[string]any{"name": "search"})
	require.NoError(t, err)

	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "ws-ok", result.Text())
}
