// Package server hosts the batch executor behind an HTTP POST
// endpoint and an optional WebSocket endpoint speaking the same batch
// frames. The path registry is validated before the server accepts
// traffic; an invalid manifest never serves.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"batchrpc/registry"
	"batchrpc/wire"
)

// Options configures a Server.
type Options struct {
	Addr        string // listen address, e.g. ":8080"
	APIPrefix   string // mount path; empty selects wire.DefaultAPIPrefix
	MaxBodySize int64  // request body bound, 0 means no limit
	EnableWS    bool   // also mount the WebSocket endpoint at {prefix}/ws
}

// Server serves batch requests against a validated path registry.
type Server struct {
	opts       Options
	registry   *registry.Registry
	executor   *Executor
	httpServer *http.Server
	logger     zerolog.Logger
}

// New builds the registry from the manifest and wires the endpoints.
// Manifest validation failure is returned before anything listens.
func New(manifest registry.Manifest, opts Options, logger zerolog.Logger) (*Server, error) {
	reg, err := registry.Build(manifest, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build path registry: %w", err)
	}

	if opts.APIPrefix == "" {
		opts.APIPrefix = wire.DefaultAPIPrefix
	}
	opts.APIPrefix = "/" + strings.Trim(opts.APIPrefix, "/")

	s := &Server{
		opts:     opts,
		registry: reg,
		executor: NewExecutor(reg, logger),
		logger:   logger.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.Handle(opts.APIPrefix, NewHandler(s.executor, opts.MaxBodySize, logger))
	if opts.EnableWS {
		mux.Handle(opts.APIPrefix+"/ws", NewWSHandler(s.executor, logger))
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// Registry exposes the validated path registry.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Handler returns the HTTP handler serving both endpoints, for
// embedding into a host mux or test server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until shutdown or failure.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.opts.Addr).
		Str("prefix", s.opts.APIPrefix).
		Int("routes", s.registry.Len()).
		Bool("ws", s.opts.EnableWS).
		Msg("batch server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down batch server")
	return s.httpServer.Shutdown(ctx)
}
