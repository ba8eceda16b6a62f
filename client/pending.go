package client

import (
	"context"
	"encoding/json"
	"sync"

	"batchrpc/wire"
)

type outcome struct {
	data json.RawMessage
	err  error
}

// Pending is one queued call's future. It settles exactly once: with
// the call's own result, its own failure, or the shared transport
// failure of its batch.
type Pending struct {
	c         *Client
	id        wire.ID
	path      []string
	input     json.RawMessage
	evictions int

	once sync.Once
	done chan outcome
}

// ID returns the call's correlation id.
func (p *Pending) ID() wire.ID {
	return p.id
}

// Wait blocks until the call settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case o := <-p.done:
		// re-buffer so repeated Wait calls observe the outcome
		p.done <- o
		return o.data, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel removes the call from its still-open batch. It reports false
// once the call is in flight or settled; an in-flight call cannot be
// cancelled and must be awaited.
func (p *Pending) Cancel() bool {
	if !p.c.queue.cancel(p) {
		return false
	}
	p.settle(nil, &CancelledError{Path: wire.JoinPath(p.path)})
	return true
}

func (p *Pending) settle(data json.RawMessage, err error) {
	p.once.Do(func() {
		p.done <- outcome{data: data, err: err}
	})
}
