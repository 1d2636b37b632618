package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WSTransport sends and receives JSON-RPC frames over a single persistent
// WebSocket connection to baseURL's scheme-substituted /mcp/ws path,
// correlating asynchronous replies by id the same way SSETransport does.
// github.com/gorilla/websocket is carried over from the rest of the example
// pack's go.mod (goadesign-goa-ai, jordigilh-kubernaut both require it);
// this is the one component in the module that exercises it directly.
type WSTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	corr    *correlator
	nextID  atomic.Int64
	done    chan struct{}
}

// wsURL rewrites an http(s) base URL to its ws(s) equivalent and appends the
// MCP WebSocket path.
func wsURL(baseURL string) string {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + "/mcp/ws"
}

// NewWSTransport dials the server's WebSocket endpoint and starts the
// background read loop.
func NewWSTransport(ctx context.Context, baseURL string, headers map[string]string) (*WSTransport, error) {
	httpHeader := make(map[string][]string, len(headers))
	for k, v := range headers {
		httpHeader[k] = []string{v}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(baseURL), httpHeader)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial websocket: %w", err)
	}
	t := &WSTransport{
		conn: conn,
		corr: newCorrelator(),
		done: make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer close(t.done)
	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			t.corr.closeAll()
			return
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		t.corr.deliver(resp)
	}
}

// Call implements Transport.
func (t *WSTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.nextID.Add(1)
	req := NewRequest(id, method, params)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode request: %w", err)
	}

	t.writeMu.Lock()
	err = t.conn.WriteMessage(websocket.TextMessage, body)
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("rpc: write websocket frame: %w", err)
	}

	resp, err := t.corr.await(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Close implements Transport.
func (t *WSTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	err := t.conn.Close()
	<-t.done
	return err
}
