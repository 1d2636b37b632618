package rpc

import (
	"bufio"
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

// SSETransport sends requests over an HTTP POST (same endpoint mapping as
// HTTPTransport) and receives their responses asynchronously over a
// `GET /mcp/sse?clientId=...` event stream, correlated by JSON-RPC id.
// bufio's line scanner reads the line-delimited event/data frames directly
// rather than pulling in a third-party SSE client.
type SSETransport struct {
	BaseURL  string
	ClientID string
	Headers  map[string]string
	Client   *http.Client

	corr   *correlator
	nextID atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSSETransport dials the SSE stream and starts its background read loop.
// clientID identifies this session to the server across the POST and GET
// legs of the transport.
func NewSSETransport(ctx context.Context, baseURL, clientID string, headers map[string]string) (*SSETransport, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	url := strings.TrimRight(baseURL, "/") + "/mcp/sse?clientId=" + clientID

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("rpc: build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("rpc: connect sse stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("rpc: sse stream returned http %d", resp.StatusCode)
	}

	t := &SSETransport{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		Headers:  headers,
		Client:   &http.Client{Timeout: 30 * time.Second},
		corr:     newCorrelator(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go t.readLoop(resp.Body)
	return t, nil
}

// readLoop parses `data: {...}` lines from the event stream, decoding each
// payload as a JSON-RPC response and handing it to the correlator.
func (t *SSETransport) readLoop(body io.ReadCloser) {
	defer close(t.done)
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			continue
		}
		t.corr.deliver(resp)
	}
	t.corr.closeAll()
}

// Call implements Transport: POST the request, then wait for its matching
// response on the SSE stream.
func (t *SSETransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.nextID.Add(1)
	req := NewRequest(id, method, params)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode request: %w", err)
	}

	url := t.BaseURL + endpointFor(method) + "?clientId=" + t.ClientID
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
	httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return nil, &Error{Code: CodeServerUnavailable, Message: fmt.Sprintf("http %d submitting %s", httpResp.StatusCode, method)}
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

// Close implements Transport: stops the background read loop.
func (t *SSETransport) Close() error {
	t.cancel()
	<-t.done
	return nil
}
