package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// endpointFor maps a JSON-RPC method name to the path the HTTP transport
// exposes it under.
func endpointFor(method string) string {
	switch method {
	case "initialize":
		return "/mcp/initialize"
	case "tools/list":
		return "/mcp/tools/list"
	case "tools/call":
		return "/mcp/tools/call"
	case "ping":
		return "/mcp/ping"
	default:
		return "/mcp/" + method
	}
}

// HTTPTransport issues one JSON-RPC request per call as an HTTP POST to
// baseURL+endpointFor(method), following the request/response idiom of the
// teacher's claude CLIClient (single call in, single decoded result out) but
// over the network instead of a subprocess.
type HTTPTransport struct {
	BaseURL string
	Headers map[string]string
	Client  *http.Client

	nextID atomic.Int64
}

// NewHTTPTransport constructs an HTTPTransport with the given per-server
// connect/read/write timeouts (seconds; zero means the http.Client default).
func NewHTTPTransport(baseURL string, headers map[string]string, connectTimeout, readTimeout int) *HTTPTransport {
	timeout := time.Duration(connectTimeout+readTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Headers: headers,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.nextID.Add(1)
	req := NewRequest(id, method, params)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode request: %w", err)
	}

	url := t.BaseURL + endpointFor(method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range t.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("rpc: read response body: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, &Error{Code: CodeServerUnavailable, Message: fmt.Sprintf("http %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("rpc: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Close implements Transport; the HTTP transport holds no persistent
// connection to tear down.
func (t *HTTPTransport) Close() error { return nil }
