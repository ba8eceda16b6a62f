package client

import (
	"context"

	"batchrpc/wire"
)

// dispatch turns a closed batch into one wire request and settles
// every member from the response. Runs on its own goroutine per
// batch.
func (c *Client) dispatch(items []*Pending) {
	items = c.evictOverflow(items)
	if len(items) == 0 {
		return
	}

	calls := make([]wire.Call, len(items))
	body := make([]wire.BodyItem, len(items))
	inflight := make(map[wire.ID]*Pending, len(items))
	for i, p := range items {
		calls[i] = wire.Call{ID: p.id, Path: p.path}
		body[i] = wire.BodyItem{ID: p.id, Input: p.input}
		inflight[p.id] = p
	}

	bodyBytes, err := wire.MarshalBody(body)
	if err != nil {
		terr := &TransportError{Err: err}
		for _, p := range items {
			p.settle(nil, terr)
		}
		return
	}

	req := &Request{Calls: wire.EncodeCalls(calls), Body: bodyBytes}

	c.logger.Debug().
		Int("calls", len(items)).
		Str("first", wire.JoinPath(items[0].path)).
		Msg("sending batch")

	data, err := c.transport.Send(context.Background(), req)
	if err != nil {
		// the one case where a single failure is shared by the batch
		terr := &TransportError{Err: err}
		for _, p := range items {
			p.settle(nil, terr)
		}
		return
	}

	results, err := wire.ParseItems(data)
	if err != nil {
		terr := &TransportError{Err: err}
		for _, p := range items {
			p.settle(nil, terr)
		}
		return
	}

	for _, item := range results {
		p, ok := inflight[item.ID]
		if !ok {
			c.logger.Warn().Str("id", string(item.ID)).Msg("response item with unknown id")
			continue
		}
		delete(inflight, item.ID)

		if item.HasError() {
			p.settle(nil, item.Error)
		} else {
			p.settle(item.Data, nil)
		}
	}

	// a delivered response must cover every call it was sent for
	for _, p := range inflight {
		c.logger.Error().Str("id", string(p.id)).Msg("batch response missing call id")
		p.settle(nil, wire.NewInternalError("batch response carried no item for call "+string(p.id)))
	}
}

// evictOverflow trims the batch tail until the encoded calls
// parameter fits the URL bound. Evicted calls are re-enqueued at
// once: they open (and head) the next batch when none is open,
// otherwise they join the currently open batch. A call evicted more
// than MaxEvictions times fails with OversizeError instead of
// looping.
func (c *Client) evictOverflow(items []*Pending) []*Pending {
	var evicted []*Pending
	for len(items) > 1 && c.encodedSize(items) > c.cfg.MaxURLSize {
		last := items[len(items)-1]
		items = items[:len(items)-1]
		evicted = append([]*Pending{last}, evicted...)
	}

	for _, p := range evicted {
		p.evictions++
		if p.evictions > c.cfg.MaxEvictions {
			size := wire.EncodedCallSize(p.id, p.path)
			p.settle(nil, &OversizeError{Path: wire.JoinPath(p.path), Size: size, Limit: c.cfg.MaxURLSize})
			continue
		}
		c.logger.Debug().
			Str("path", wire.JoinPath(p.path)).
			Int("evictions", p.evictions).
			Msg("re-enqueueing call evicted from over-full batch")
		c.queue.enqueue(p)
	}

	return items
}

func (c *Client) encodedSize(items []*Pending) int {
	n := 0
	for i, p := range items {
		if i > 0 {
			n += wire.EncodedSeparatorSize
		}
		n += wire.EncodedCallSize(p.id, p.path)
	}
	return n
}
