// Package client issues namespaced remote calls and transparently
// coalesces near-simultaneous calls into a single batch request.
//
// Calls made within the rolling debounce window share one wire
// request; each caller still observes an independent outcome,
// correlated by id. Example:
//
//	c := client.New("http://localhost:8080")
//	users := c.Namespace("users")
//	a := users.Route("get").Go(map[string]string{"id": "1"})
//	b := users.Route("list").Go(nil)
//	got, err := a.Wait(ctx)
package client

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"batchrpc/wire"
)

// Default batching bounds
const (
	DefaultMaxBatchSize   = 20
	DefaultDebounce       = 50 * time.Millisecond
	DefaultMaxURLSize     = 2048
	DefaultMaxEvictions   = 3
	DefaultRequestTimeout = 5 * time.Second
)

// Config holds the batching parameters of one client.
type Config struct {
	MaxBatchSize int           // max calls per batch; reaching it flushes immediately
	Debounce     time.Duration // rolling window after the most recent enqueue
	MaxURLSize   int           // bound on the encoded calls parameter, bytes
	MaxEvictions int           // overflow re-queue attempts before OversizeError
	Disabled     bool          // when set, every call flushes as a singleton batch
}

func defaultConfig() Config {
	return Config{
		MaxBatchSize: DefaultMaxBatchSize,
		Debounce:     DefaultDebounce,
		MaxURLSize:   DefaultMaxURLSize,
		MaxEvictions: DefaultMaxEvictions,
	}
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithDebounce sets the rolling debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Client) { c.cfg.Debounce = d }
}

// WithMaxBatchSize sets the item bound per batch.
func WithMaxBatchSize(n int) Option {
	return func(c *Client) { c.cfg.MaxBatchSize = n }
}

// WithMaxURLSize sets the encoded-size bound per batch.
func WithMaxURLSize(n int) Option {
	return func(c *Client) { c.cfg.MaxURLSize = n }
}

// WithBatchingDisabled makes every call its own batch with no
// debounce delay.
func WithBatchingDisabled() Option {
	return func(c *Client) { c.cfg.Disabled = true }
}

// WithRequestTimeout sets the per-batch request timeout of the
// default HTTP transport.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithAPIPrefix sets the server mount path of the default HTTP
// transport.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) { c.apiPrefix = prefix }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is a batched namespace-RPC client. One queue per client;
// correlation ids are monotonic per instance.
type Client struct {
	cfg            Config
	transport      Transport
	queue          *queue
	logger         zerolog.Logger
	nextID         atomic.Int64
	requestTimeout time.Duration
	apiPrefix      string
}

// New creates a Client talking to baseURL over HTTP POST, unless
// WithTransport overrides the transport.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		cfg:            defaultConfig(),
		logger:         zerolog.Nop(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "client").Logger()

	if c.transport == nil {
		c.transport = NewHTTPTransport(baseURL, c.apiPrefix, c.requestTimeout)
	}
	c.queue = newQueue(c.cfg, c.dispatch, c.logger)
	return c
}

// Close flushes the open batch and waits for in-flight dispatches to
// settle. The client must not be used afterwards.
func (c *Client) Close() {
	c.queue.close()
	if t, ok := c.transport.(*WSTransport); ok {
		t.Close()
	}
}

func (c *Client) newID() wire.ID {
	return wire.NewID(c.nextID.Add(1))
}
