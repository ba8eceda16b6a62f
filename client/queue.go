package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"batchrpc/wire"
)

// openBatch is the queue's currently accumulating batch.
type openBatch struct {
	items   []*Pending
	encoded int // projected size of the calls parameter, bytes
	timer   *time.Timer
	seq     uint64 // guards against a stale timer flushing a successor batch
}

// queue accumulates pending calls and decides, per arrival, whether
// to append, flush, or defer to the debounce timer. State machine:
// Idle -> Open(batch, timer) -> Flushing -> Idle.
type queue struct {
	cfg      Config
	dispatch func([]*Pending)
	logger   zerolog.Logger

	mu     sync.Mutex
	open   *openBatch
	seq    uint64
	closed bool

	wg sync.WaitGroup // in-flight dispatches
}

func newQueue(cfg Config, dispatch func([]*Pending), logger zerolog.Logger) *queue {
	return &queue{
		cfg:      cfg,
		dispatch: dispatch,
		logger:   logger.With().Str("component", "queue").Logger(),
	}
}

// enqueue places a call in the open batch, opens a fresh one, or
// flushes first when bounds would be exceeded. Synchronous; the
// caller's future settles later.
func (q *queue) enqueue(p *Pending) {
	size := wire.EncodedCallSize(p.id, p.path)
	if size > q.cfg.MaxURLSize {
		p.settle(nil, &OversizeError{Path: wire.JoinPath(p.path), Size: size, Limit: q.cfg.MaxURLSize})
		return
	}

	var flush []*Pending

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.settle(nil, &TransportError{Err: errClosed})
		return
	}

	if q.cfg.Disabled {
		q.mu.Unlock()
		q.launch([]*Pending{p})
		return
	}

	switch {
	case q.open == nil:
		q.openLocked(p, size)

	case q.open.encoded+wire.EncodedSeparatorSize+size > q.cfg.MaxURLSize,
		len(q.open.items)+1 > q.cfg.MaxBatchSize:
		// flush the current batch without the newcomer, then start a
		// fresh one containing only it
		flush = q.takeLocked()
		q.openLocked(p, size)

	default:
		q.open.items = append(q.open.items, p)
		q.open.encoded += wire.EncodedSeparatorSize + size
		q.open.timer.Reset(q.cfg.Debounce)
	}

	// a batch at capacity flushes at once, whether it just filled up
	// or opened already full
	var full []*Pending
	if q.open != nil && len(q.open.items) >= q.cfg.MaxBatchSize {
		full = q.takeLocked()
	}
	q.mu.Unlock()

	if flush != nil {
		q.launch(flush)
	}
	if full != nil {
		q.launch(full)
	}
}

// openLocked starts a fresh batch holding only p.
func (q *queue) openLocked(p *Pending, size int) {
	q.seq++
	b := &openBatch{
		items:   []*Pending{p},
		encoded: size,
		seq:     q.seq,
	}
	b.timer = time.AfterFunc(q.cfg.Debounce, func() {
		q.flushTimer(b.seq)
	})
	q.open = b
}

// takeLocked closes the open batch and returns its items.
func (q *queue) takeLocked() []*Pending {
	if q.open == nil {
		return nil
	}
	q.open.timer.Stop()
	items := q.open.items
	q.open = nil
	return items
}

// flushTimer fires when the debounce window elapses with no new
// arrivals. seq rejects timers belonging to already-flushed batches.
func (q *queue) flushTimer(seq uint64) {
	q.mu.Lock()
	if q.open == nil || q.open.seq != seq {
		q.mu.Unlock()
		return
	}
	items := q.takeLocked()
	q.mu.Unlock()

	q.launch(items)
}

// cancel removes p from the open batch. Reports false when p is no
// longer queued (already flushed or never enqueued).
func (q *queue) cancel(p *Pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.open == nil {
		return false
	}
	for i, item := range q.open.items {
		if item != p {
			continue
		}
		q.open.items = append(q.open.items[:i], q.open.items[i+1:]...)
		if len(q.open.items) == 0 {
			q.open.timer.Stop()
			q.open = nil
		} else {
			q.open.encoded -= wire.EncodedSeparatorSize + wire.EncodedCallSize(p.id, p.path)
		}
		return true
	}
	return false
}

func (q *queue) launch(items []*Pending) {
	q.logger.Debug().Int("size", len(items)).Msg("flushing batch")
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.dispatch(items)
	}()
}

// close flushes the open batch and waits for in-flight dispatches.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	items := q.takeLocked()
	q.mu.Unlock()

	if items != nil {
		q.launch(items)
	}
	q.wg.Wait()
}
