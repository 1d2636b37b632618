// Package control is the companion server/client pair the CLI uses to talk
// to a running agent-start process: a Unix domain socket carrying
// newline-delimited JSON-RPC 2.0 frames, the same wire shape
// internal/rpc uses for the Remote Tool Manager's outbound MCP calls,
// turned around to serve the agent's own control-plane methods
// (status/submitTask/getTask/listTasks/clearCompleted/cancelTask/runPlan). Grounded on the
// teacher's internal/cmd/run.go pattern of a CLI command driving a
// long-lived orchestrator, generalized here across a process boundary since
// the agent now runs continuously instead of for one plan's duration.
package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/harrison/agentcore/internal/rpc"
)

// DialTimeout bounds how long a client waits to connect to the control
// socket before giving up with a "is the agent running?" style error.
const DialTimeout = 2 * time.Second

// Call issues one request/response round-trip against the control socket at
// socketPath and decodes result into out (if out is non-nil).
func Call(socketPath, method string, params any, out any) error {
	conn, err := net.DialTimeout("unix", socketPath, DialTimeout)
	if err != nil {
		return fmt.Errorf("control: connect to agent (is it running? tried %s): %w", socketPath, err)
	}
	defer conn.Close()

	req := rpc.NewRequest(1, method, params)
	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return fmt.Errorf("control: send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	var resp rpc.Response
	dec := json.NewDecoder(reader)
	if err := dec.Decode(&resp); err != nil {
		return fmt.Errorf("control: read response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("control: decode result: %w", err)
		}
	}
	return nil
}

// Handler resolves one control-plane method call into a JSON-serializable
// result or an error. Server adapts an *agentfacade.Agent to this shape, one
// level up, to avoid a control -> agentfacade import cycle.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Server listens on a Unix domain socket and dispatches newline-delimited
// JSON-RPC requests to registered Handlers, one connection at a time per
// request (short-lived connections, matching the CLI's one-shot-call usage
// pattern).
type Server struct {
	listener net.Listener
	handlers map[string]Handler
	done     chan struct{}
}

// Listen creates the control socket at socketPath, removing any stale
// socket file left behind by a prior unclean shutdown first.
func Listen(socketPath string) (*Server, error) {
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("control: listen on %s: %w", socketPath, err)
	}
	return &Server{listener: ln, handlers: map[string]Handler{}, done: make(chan struct{})}, nil
}

// Handle registers fn for method.
func (s *Server) Handle(method string, fn Handler) {
	s.handlers[method] = fn
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting new connections and removes the socket file.
func (s *Server) Close() error {
	close(s.done)
	err := s.listener.Close()
	if addr, ok := s.listener.Addr().(*net.UnixAddr); ok {
		_ = os.Remove(addr.Name)
	}
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var req rpc.Request
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&req); err != nil {
		return
	}

	resp := rpc.Response{JSONRPC: "2.0", ID: req.ID}

	handler, ok := s.handlers[req.Method]
	if !ok {
		resp.Error = &rpc.Error{Code: rpc.CodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	} else {
		paramsRaw, _ := json.Marshal(req.Params)
		result, err := handler(ctx, paramsRaw)
		if err != nil {
			resp.Error = &rpc.Error{Code: rpc.CodeInternalError, Message: err.Error()}
		} else {
			raw, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				resp.Error = &rpc.Error{Code: rpc.CodeInternalError, Message: marshalErr.Error()}
			} else {
				resp.Result = raw
			}
		}
	}

	enc := json.NewEncoder(conn)
	_ = enc.Encode(resp)
}
