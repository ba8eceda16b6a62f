package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"batchrpc/wire"
)

// WSTransport carries batches over a WebSocket connection as
// {seq, calls, body} frames. Request/response pairs are serialized
// per connection; the connection is dialed lazily and redialed after
// a failure.
type WSTransport struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	seq  uint64
}

// NewWSTransport creates a WebSocket transport for wsURL
// (e.g. "ws://host:port/api/batch/ws").
func NewWSTransport(wsURL string, timeout time.Duration) *WSTransport {
	return &WSTransport{
		url:     wsURL,
		timeout: timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

// Send implements Transport
func (t *WSTransport) Send(ctx context.Context, req *Request) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", t.url, err)
		}
		t.conn = conn
	}

	t.seq++
	frame := wire.Frame{Seq: t.seq, Calls: req.Calls, Body: req.Body}

	t.conn.SetWriteDeadline(time.Now().Add(t.timeout))
	if err := t.conn.WriteJSON(frame); err != nil {
		t.dropLocked()
		return nil, fmt.Errorf("failed to write batch frame: %w", err)
	}

	t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	for {
		var resp wire.ResponseFrame
		if err := t.conn.ReadJSON(&resp); err != nil {
			t.dropLocked()
			return nil, fmt.Errorf("failed to read batch frame: %w", err)
		}
		if resp.Seq != frame.Seq {
			// frame for an abandoned earlier request; skip
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return wire.MarshalItems(resp.Items)
	}
}

// Close closes the underlying connection.
func (t *WSTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked()
}

func (t *WSTransport) dropLocked() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}
