package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPBackend dispatches requests to a remote sandboxed execution service
// over a JSON request/response channel. The client enforces its own
// deadline through ctx, independent of any timeout the sandbox declares.
type HTTPBackend struct {
	// URL is the sandbox execute endpoint, e.g. "http://sandbox:9000/execute".
	URL string

	client *http.Client
}

// NewHTTPBackend returns a backend client for the given execute endpoint.
// Per-request deadlines come from the caller's context, so the underlying
// client carries no timeout of its own.
func NewHTTPBackend(url string) *HTTPBackend {
	return &HTTPBackend{
		URL:    url,
		client: &http.Client{},
	}
}

// Execute posts the request to the sandbox and decodes its response.
func (b *HTTPBackend) Execute(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("http backend: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http backend: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http backend: posting to %s: %w", b.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded amount of the body for the diagnostic.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http backend: sandbox returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("http backend: decoding response: %w", err)
	}
	return &out, nil
}

// WithClient overrides the underlying HTTP client. Useful for tests and
// for callers that need custom transports.
func (b *HTTPBackend) WithClient(c *http.Client) *HTTPBackend {
	b.client = c
	return b
}
