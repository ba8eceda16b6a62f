package registry

import (
	"context"
	"encoding/json"
	"net/http"
)

// Handler executes one route. The first parameter slot of every route
// is the call's input, delivered as raw JSON (nil when the caller
// passed no input); meta carries invocation-time context supplied by
// the host, beyond the reserved input.
type Handler func(ctx context.Context, input json.RawMessage, meta *CallContext) (interface{}, error)

// CallContext is the collaborator-supplied request metadata made
// available to handlers.
type CallContext struct {
	Header     http.Header
	RemoteAddr string
}

// Upload modes for routes that accept file payloads
const (
	UploadModeFile  = "file"
	UploadModeFiles = "files"
)

// UploadConfig is per-route file-upload configuration. The transport
// encoding of uploads is handled by the host; the registry only
// carries the declaration.
type UploadConfig struct {
	Mode        string
	MaxFileSize int64
}

// Route is one invocable leaf of the manifest.
type Route struct {
	Handler Handler
	Upload  *UploadConfig
}

// Router exposes a set of routes under one namespace key. Mounting a
// value in a Manifest marks it as a router; only types implementing
// this interface are accepted as manifest leaves.
type Router interface {
	Routes() map[string]Route
}

// Manifest is the declarative namespace tree: each key maps to either
// a nested Manifest, a Router, or a Merge of routers.
type Manifest map[string]interface{}

// Merge mounts several routers under a single namespace key. Routers
// in a merge must not declare the same route name.
type Merge []Router

// RouterFunc adapts a plain routes map into a Router.
type RouterFunc map[string]Route

// Routes implements Router
func (r RouterFunc) Routes() map[string]Route {
	return r
}
