package registry

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"batchrpc/wire"
)

// DefaultLookupCacheSize bounds the joined-path lookup memo.
const DefaultLookupCacheSize = 1024

// ValidationError is a fatal startup error naming the offending path.
type ValidationError struct {
	Path   string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid route registration at %q: %s", e.Path, e.Reason)
}

// Entry is one resolved invocation target.
type Entry struct {
	Path    []string
	Handler Handler
	Upload  *UploadConfig
}

// node is one level of the immutable path tree.
type node struct {
	children map[string]*node
	entry    *Entry
}

// Registry resolves dotted paths to invocation targets. Built once at
// startup and read-only afterward, so concurrent lookups need no
// locking; the lru memo is internally synchronized.
type Registry struct {
	root   *node
	count  int
	memo   *lru.Cache[string, *Entry]
	logger zerolog.Logger
}

// Build walks the manifest and constructs the registry. Any invalid
// leaf, duplicate path, or malformed segment is a fatal error; the
// caller must not serve with a nil registry.
func Build(m Manifest, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		root:   &node{children: make(map[string]*node)},
		logger: logger.With().Str("component", "registry").Logger(),
	}

	if err := r.walk(r.root, nil, m); err != nil {
		return nil, err
	}
	if r.count == 0 {
		return nil, &ValidationError{Path: "", Reason: "manifest declares no routes"}
	}

	memo, err := lru.New[string, *Entry](DefaultLookupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup memo: %w", err)
	}
	r.memo = memo

	r.logger.Info().Int("routes", r.count).Msg("path registry built")
	return r, nil
}

func (r *Registry) walk(n *node, prefix []string, m Manifest) error {
	for key, value := range m {
		path := append(append([]string{}, prefix...), key)
		joined := wire.JoinPath(path)

		if err := wire.ValidateSegment(key); err != nil {
			return &ValidationError{Path: joined, Reason: err.Error()}
		}

		switch v := value.(type) {
		case Manifest:
			child, err := r.child(n, key, joined)
			if err != nil {
				return err
			}
			if err := r.walk(child, path, v); err != nil {
				return err
			}
		case Router:
			child, err := r.child(n, key, joined)
			if err != nil {
				return err
			}
			if err := r.mount(child, path, v); err != nil {
				return err
			}
		case Merge:
			child, err := r.child(n, key, joined)
			if err != nil {
				return err
			}
			for _, router := range v {
				if router == nil {
					return &ValidationError{Path: joined, Reason: "nil router in merge"}
				}
				if err := r.mount(child, path, router); err != nil {
					return err
				}
			}
		case nil:
			return &ValidationError{Path: joined, Reason: "nil manifest entry"}
		default:
			return &ValidationError{
				Path:   joined,
				Reason: fmt.Sprintf("leaf of type %T is not marked as a router", value),
			}
		}
	}
	return nil
}

// child creates or reuses the named child of n. A child that already
// holds an entry cannot also become a namespace.
func (r *Registry) child(n *node, key, joined string) (*node, error) {
	if c, ok := n.children[key]; ok {
		if c.entry != nil {
			return nil, &ValidationError{Path: joined, Reason: "duplicate path registration"}
		}
		return c, nil
	}
	c := &node{children: make(map[string]*node)}
	n.children[key] = c
	return c, nil
}

// mount registers every route of a router beneath n.
func (r *Registry) mount(n *node, prefix []string, router Router) error {
	routes := router.Routes()
	if len(routes) == 0 {
		return &ValidationError{Path: wire.JoinPath(prefix), Reason: "router declares no routes"}
	}

	for name, route := range routes {
		path := append(append([]string{}, prefix...), name)
		joined := wire.JoinPath(path)

		if err := wire.ValidateSegment(name); err != nil {
			return &ValidationError{Path: joined, Reason: err.Error()}
		}
		if route.Handler == nil {
			return &ValidationError{Path: joined, Reason: "route has no handler"}
		}
		if route.Upload != nil {
			switch route.Upload.Mode {
			case UploadModeFile, UploadModeFiles:
			default:
				return &ValidationError{
					Path:   joined,
					Reason: fmt.Sprintf("unknown upload mode %q", route.Upload.Mode),
				}
			}
		}

		child, ok := n.children[name]
		if !ok {
			child = &node{children: make(map[string]*node)}
			n.children[name] = child
		}
		if child.entry != nil || len(child.children) > 0 {
			return &ValidationError{Path: joined, Reason: "duplicate path registration"}
		}

		child.entry = &Entry{Path: path, Handler: route.Handler, Upload: route.Upload}
		r.count++
	}
	return nil
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	return r.count
}

// Lookup resolves a path to its entry. Resolution failure is a
// per-call error, never fatal: malformed paths arrive from clients at
// runtime.
func (r *Registry) Lookup(path []string) (*Entry, *wire.Error) {
	joined := wire.JoinPath(path)

	if entry, ok := r.memo.Get(joined); ok {
		return entry, nil
	}

	n := r.root
	for _, seg := range path {
		next, ok := n.children[seg]
		if !ok {
			return nil, wire.NewNotFoundError(joined)
		}
		n = next
	}
	if n.entry == nil {
		return nil, wire.NewNotFoundError(joined)
	}

	r.memo.Add(joined, n.entry)
	return n.entry, nil
}
