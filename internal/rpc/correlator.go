package rpc

import (
	"context"
	"errors"
	"sync"
)

// ErrTransportClosed is returned by a pending call when its transport is
// torn down before a response for it arrives.
var ErrTransportClosed = errors.New("rpc: transport closed")

// correlator matches asynchronous responses (arriving over SSE or
// WebSocket, in any order, from a single background read loop) back to the
// request goroutine waiting on them, keyed by JSON-RPC id.
type correlator struct {
	mu      sync.Mutex
	pending map[int64]chan Response
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[int64]chan Response)}
}

// await registers id and blocks until either a matching response arrives,
// ctx is cancelled, or the correlator is closed out from under it.
func (c *correlator) await(ctx context.Context, id int64) (Response, error) {
	ch := make(chan Response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrTransportClosed
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// deliver routes resp to whichever goroutine is awaiting its id, if any.
func (c *correlator) deliver(resp Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

// closeAll unblocks every pending await with a closed-transport error.
func (c *correlator) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
