package client

import (
	"context"
	"encoding/json"
	"fmt"

	"batchrpc/wire"
)

// Namespace is one level of the call-path namespace. Namespaces are
// cheap values; building them performs no network activity.
type Namespace struct {
	c    *Client
	path []string
}

// Namespace returns a nested namespace.
func (c *Client) Namespace(segments ...string) Namespace {
	return Namespace{c: c, path: segments}
}

// Namespace descends further into the tree.
func (n Namespace) Namespace(segments ...string) Namespace {
	return Namespace{c: n.c, path: append(append([]string{}, n.path...), segments...)}
}

// Route terminates the chain with an invocable accessor.
func (n Namespace) Route(name string) Route {
	return Route{c: n.c, path: append(append([]string{}, n.path...), name)}
}

// Route is a shortcut for a root-level accessor.
func (c *Client) Route(segments ...string) Route {
	return Route{c: c, path: segments}
}

// Route is one invocable accessor: calling it produces a descriptor
// and hands it to the batch queue.
type Route struct {
	c    *Client
	path []string
}

// Path returns the route's path segments.
func (r Route) Path() []string {
	return append([]string{}, r.path...)
}

// Go enqueues a call and returns its future. Usage errors (empty or
// malformed path, unserializable input) settle the future at the call
// site without touching the queue or the network. A nil input is sent
// as an absent input, not JSON null.
func (r Route) Go(input interface{}) *Pending {
	p := &Pending{
		c:    r.c,
		id:   r.c.newID(),
		path: append([]string{}, r.path...),
		done: make(chan outcome, 1),
	}

	if err := wire.ValidatePath(r.path); err != nil {
		p.settle(nil, fmt.Errorf("invalid call path: %w", err))
		return p
	}

	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			p.settle(nil, fmt.Errorf("failed to marshal input for %s: %w", wire.JoinPath(r.path), err))
			return p
		}
		p.input = data
	}

	r.c.queue.enqueue(p)
	return p
}

// Call is Go followed by Wait.
func (r Route) Call(ctx context.Context, input interface{}) (json.RawMessage, error) {
	return r.Go(input).Wait(ctx)
}

// Result awaits a pending call and decodes its payload into T.
func Result[T any](ctx context.Context, p *Pending) (T, error) {
	var v T
	data, err := p.Wait(ctx)
	if err != nil {
		return v, err
	}
	if data == nil {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode result for %s: %w", wire.JoinPath(p.path), err)
	}
	return v, nil
}
