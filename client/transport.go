package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"batchrpc/wire"
)

// Request is one serialized batch ready for the wire: the compact
// calls parameter plus the encoded body array.
type Request struct {
	Calls string
	Body  []byte
}

// Transport delivers one batch request and returns the raw response
// bytes. Anything beyond "send bytes, receive bytes" is the
// transport's own concern.
type Transport interface {
	Send(ctx context.Context, req *Request) ([]byte, error)
}

// HTTPTransport posts batches to {baseURL}{apiPrefix} with the calls
// parameter in the query string.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTransport creates the default transport. An empty apiPrefix
// selects wire.DefaultAPIPrefix.
func NewHTTPTransport(baseURL, apiPrefix string, timeout time.Duration) *HTTPTransport {
	if apiPrefix == "" {
		apiPrefix = wire.DefaultAPIPrefix
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	return &HTTPTransport{
		endpoint: strings.TrimRight(baseURL, "/") + apiPrefix,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Send implements Transport
func (t *HTTPTransport) Send(ctx context.Context, req *Request) ([]byte, error) {
	u := t.endpoint + "?" + wire.CallsParam + "=" + url.QueryEscape(req.Calls)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// a non-2xx status still counts as delivered when the body is
		// a parseable batch response; otherwise the whole batch failed
		if _, perr := wire.ParseItems(data); perr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return data, nil
}
