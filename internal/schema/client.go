// Package schema fetches the dimension schema a gateway advertises, for
// tools that build prompts or validate input before calling it.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"speechact/pkg/domain"
)

// Client reads GET /v1/dimensions from a gateway.
type Client struct {
	http    *http.Client
	baseURL string
	cache   *Cache
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCache makes the client consult and fill cache. Without it every call
// fetches.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a Client for the gateway at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dimensionsResponse struct {
	Dimensions map[string]Dimension `json:"dimensions"`
}

// Fetch returns the gateway's schema, from the cache when possible.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	if c.cache != nil {
		if snap, ok := c.cache.Get(c.baseURL); ok {
			return snap, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/dimensions", nil)
	if err != nil {
		return nil, fmt.Errorf("build schema request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch schema: unexpected status %d", resp.StatusCode)
	}

	var body dimensionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	for name, d := range body.Dimensions {
		d.Name = name
		body.Dimensions[name] = d
	}

	snap := &Snapshot{Dimensions: body.Dimensions, FetchedAt: c.now()}
	if c.cache != nil {
		c.cache.Set(c.baseURL, snap)
	}
	return snap, nil
}

// Local builds a snapshot from the compiled-in registry.
func Local() *Snapshot {
	out := map[string]Dimension{}
	for _, d := range domain.Schema() {
		out[string(d.Dimension)] = Dimension{
			Name:        string(d.Dimension),
			Domain:      string(d.Domain),
			Description: d.Description,
			ValidValues: d.ValidValues,
		}
	}
	return &Snapshot{Dimensions: out, FetchedAt: time.Now()}
}
