package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSEServer accepts tools/call POSTs and republishes each result over
// the SSE stream tagged with the originating request's id, mirroring how a
// real MCP SSE transport decouples the POST leg from the async reply.
func fakeSSEServer(t *testing.T) *httptest.Server {
	t.Helper()
	var flusher http.Flusher
	var writer http.ResponseWriter

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		flusher = f
		writer = w
		f.Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/mcp/tools/call", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusOK)
		result, _ := json.Marshal(ToolCallResult{Content: []ContentItem{{Type: "text", Text: "sse-ok"}}})
		resp := Response{JSONRPC: "2.0", ID: req.ID, Result: result}
		raw, _ := json.Marshal(resp)
		if writer != nil {
			fmt.Fprintf(writer, "data: %s\n\n", raw)
			flusher.Flush()
		}
	})
	return httptest.NewServer(mux)
}

func TestSSETransportRoundTrip(t *testing.T) {
	srv := fakeSSEServer(t)
	defer srv.Close()

	transport, err := NewSSETransport(t.Context(), srv.URL, "client-1", nil)
	require.NoError(t, err)
	defer transport.Close()

	raw, err := transport.Call(t.Context(), "tools/call", map[string]any{"name": "search"})
	require.NoError(t, err)

	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "sse-ok", result.Text())
}
