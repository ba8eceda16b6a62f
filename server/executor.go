package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"batchrpc/registry"
	"batchrpc/wire"
)

// Executor runs decoded batches against the path registry. Items of a
// batch execute concurrently; a failure of one item never reaches its
// siblings.
type Executor struct {
	registry *registry.Registry
	logger   zerolog.Logger
}

// NewExecutor creates an Executor
func NewExecutor(reg *registry.Registry, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: reg,
		logger:   logger.With().Str("component", "executor").Logger(),
	}
}

// Execute resolves and invokes every call of a batch concurrently and
// assembles the correlated response. The response covers the full id
// set of the request; ordering follows the request since the client
// correlates by id anyway.
func (e *Executor) Execute(ctx context.Context, calls []wire.Call, body []wire.BodyItem, meta *registry.CallContext) []*wire.ResponseItem {
	inputs := make(map[wire.ID]wire.BodyItem, len(body))
	for _, item := range body {
		inputs[item.ID] = item
	}

	items := make([]*wire.ResponseItem, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call wire.Call) {
			defer wg.Done()
			items[i] = e.executeOne(ctx, call, inputs[call.ID].Input, meta)
		}(i, call)
	}
	wg.Wait()

	return items
}

// executeOne resolves and invokes a single call, converting every
// failure mode into that call's own failure item.
func (e *Executor) executeOne(ctx context.Context, call wire.Call, input []byte, meta *registry.CallContext) (item *wire.ResponseItem) {
	joined := wire.JoinPath(call.Path)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("path", joined).
				Interface("panic", r).
				Msg("route handler panicked")
			item = wire.NewErrorItem(call.ID, wire.NewInternalError(fmt.Sprintf("handler for %s panicked: %v", joined, r)))
		}
	}()

	entry, werr := e.registry.Lookup(call.Path)
	if werr != nil {
		return wire.NewErrorItem(call.ID, werr)
	}

	result, err := entry.Handler(ctx, input, meta)
	if err != nil {
		return wire.NewErrorItem(call.ID, wire.FromError(err))
	}

	dataItem, err := wire.NewDataItem(call.ID, result)
	if err != nil {
		e.logger.Error().Err(err).Str("path", joined).Msg("failed to marshal handler result")
		return wire.NewErrorItem(call.ID, wire.NewInternalError("failed to marshal result"))
	}
	return dataItem
}
