package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"batchrpc/registry"
	"batchrpc/wire"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	m := registry.Manifest{
		"svc": registry.RouterFunc{
			"echo": {Handler: func(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
				if input == nil {
					return nil, nil
				}
				return input, nil
			}},
			"fail": {Handler: func(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
				return nil, fmt.Errorf("boom")
			}},
			"panic": {Handler: func(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
				panic("unhinged handler")
			}},
			"slow": {Handler: func(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
				time.Sleep(80 * time.Millisecond)
				return "done", nil
			}},
		},
	}

	reg, err := registry.Build(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return reg
}

func TestExecutor_PartialFailureIsolated(t *testing.T) {
	e := NewExecutor(testRegistry(t), zerolog.Nop())

	calls := []wire.Call{
		{ID: "1", Path: []string{"svc", "echo"}},
		{ID: "2", Path: []string{"svc", "fail"}},
		{ID: "3", Path: []string{"svc", "echo"}},
	}
	body := []wire.BodyItem{
		{ID: "1", Input: json.RawMessage(`"a"`)},
		{ID: "3", Input: json.RawMessage(`"c"`)},
	}

	items := e.Execute(context.Background(), calls, body, &registry.CallContext{})
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	byID := make(map[wire.ID]*wire.ResponseItem)
	for _, item := range items {
		byID[item.ID] = item
	}

	if item := byID["1"]; item.HasError() || string(item.Data) != `"a"` {
		t.Errorf("item 1 = %+v", item)
	}
	if item := byID["3"]; item.HasError() || string(item.Data) != `"c"` {
		t.Errorf("item 3 = %+v", item)
	}

	item := byID["2"]
	if !item.HasError() {
		t.Fatal("item 2 did not fail")
	}
	if item.Error.Name != wire.NameDomain || item.Error.Message != "boom" {
		t.Errorf("item 2 error = %+v", item.Error)
	}
}

func TestExecutor_FanOutRunsConcurrently(t *testing.T) {
	e := NewExecutor(testRegistry(t), zerolog.Nop())

	calls := []wire.Call{
		{ID: "1", Path: []string{"svc", "slow"}},
		{ID: "2", Path: []string{"svc", "slow"}},
		{ID: "3", Path: []string{"svc", "slow"}},
	}

	start := time.Now()
	items := e.Execute(context.Background(), calls, nil, &registry.CallContext{})
	elapsed := time.Since(start)

	for _, item := range items {
		if item.HasError() {
			t.Errorf("item %s failed: %v", item.ID, item.Error)
		}
	}

	// serialized execution would take ~240ms
	if elapsed > 200*time.Millisecond {
		t.Errorf("batch of slow calls took %v, items did not run concurrently", elapsed)
	}
}

func TestExecutor_NotFoundNeverInvokes(t *testing.T) {
	e := NewExecutor(testRegistry(t), zerolog.Nop())

	calls := []wire.Call{
		{ID: "1", Path: []string{"svc", "missing"}},
		{ID: "2", Path: []string{"svc", "echo"}},
	}

	items := e.Execute(context.Background(), calls, nil, &registry.CallContext{})

	if !items[0].HasError() || items[0].Error.Name != wire.NameNotFound {
		t.Errorf("item 1 = %+v, want NotFoundError", items[0])
	}
	if items[1].HasError() {
		t.Errorf("sibling affected by resolution failure: %+v", items[1].Error)
	}
}

func TestExecutor_PanicBecomesFailureItem(t *testing.T) {
	e := NewExecutor(testRegistry(t), zerolog.Nop())

	calls := []wire.Call{
		{ID: "1", Path: []string{"svc", "panic"}},
		{ID: "2", Path: []string{"svc", "echo"}},
	}
	body := []wire.BodyItem{{ID: "2", Input: json.RawMessage(`1`)}}

	items := e.Execute(context.Background(), calls, body, &registry.CallContext{})

	if !items[0].HasError() || items[0].Error.Name != wire.NameInternal {
		t.Errorf("item 1 = %+v, want internal failure", items[0])
	}
	if items[1].HasError() {
		t.Errorf("sibling affected by panic: %+v", items[1].Error)
	}
}

func TestExecutor_PreservesFullIDSet(t *testing.T) {
	e := NewExecutor(testRegistry(t), zerolog.Nop())

	var calls []wire.Call
	for i := 1; i <= 8; i++ {
		path := []string{"svc", "echo"}
		if i%3 == 0 {
			path = []string{"svc", "fail"}
		}
		calls = append(calls, wire.Call{ID: wire.NewID(int64(i)), Path: path})
	}

	items := e.Execute(context.Background(), calls, nil, &registry.CallContext{})
	if len(items) != len(calls) {
		t.Fatalf("items = %d, want %d", len(items), len(calls))
	}

	seen := make(map[wire.ID]bool)
	for _, item := range items {
		seen[item.ID] = true
	}
	for _, call := range calls {
		if !seen[call.ID] {
			t.Errorf("response missing id %s", call.ID)
		}
	}
}
