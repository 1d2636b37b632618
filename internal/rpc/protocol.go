// Package rpc implements the Remote Tool Manager: a JSON-RPC 2.0 client
// fanning out over HTTP, Server-Sent Events, and WebSocket transports to a
// set of configured MCP-style tool servers. The call/retry shape mirrors a
// request-then-parse-envelope invoker, generalized here to network
// transports, and uses github.com/gorilla/websocket for the WebSocket leg.
package rpc

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the MCP wire version this client negotiates.
const ProtocolVersion = "2024-11-05"

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a well-formed JSON-RPC 2.0 request.
func NewRequest(id int64, method string, params any) Request {
	return Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// MCP-specific error codes, outside the standard JSON-RPC range.
const (
	CodeServerUnavailable = -32000
	CodeServerTimeout     = -32001
	CodeUnauthorized      = -32002
)

// Response is a JSON-RPC 2.0 response object. Exactly one of Result/Error is
// populated on a well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// ToolDescriptor is one entry of a tools/list response.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
	ServerID    string         `json:"-"` // filled in by the manager, not on the wire
}

// ContentItem is one element of a tools/call result's content array.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolCallResult is the decoded result of a tools/call response.
type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Text concatenates every text content item, the form strategies consume.
func (r ToolCallResult) Text() string {
	out := ""
	for _, c := range r.Content {
		out += c.Text
	}
	return out
}

// InitializeResult is the decoded result of an initialize response.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}
