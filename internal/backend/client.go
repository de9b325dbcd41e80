// Package backend adapts the system-of-record HTTP API to the intent ports.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"speechact/internal/intent/ports"
	"speechact/pkg/domain"
	"speechact/pkg/requestcontext"
)

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 1 << 20

// Client calls the backend over HTTP. Calls are made once; there is no retry.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It bounds each call's context and
// leaves the http.Client untouched, so a client shared through WithHTTPClient
// keeps its own settings.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type addEventRequest struct {
	Action     string            `json:"action"`
	Properties map[string]string `json:"properties"`
}

type addEventResponse struct {
	Success   *bool  `json:"success"`
	Message   string `json:"message"`
	MockID    string `json:"mockId"`
	Timestamp string `json:"timestamp"`
}

// RecordEvent calls POST /child/{id}/add_event.
func (c *Client) RecordEvent(ctx context.Context, childID domain.ChildID, action string, properties map[string]string) (*ports.EventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(addEventRequest{Action: action, Properties: properties})
	if err != nil {
		return nil, newError(ErrorBadData, 0, err, "Unexpected error: %v", err)
	}

	url := fmt.Sprintf("%s/child/%d/add_event", c.baseURL, childID.Int64())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrorBadData, 0, err, "Unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, newError(ErrorRejected, resp.StatusCode, nil, "Backend error: %d", resp.StatusCode)
	}

	var decoded addEventResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, newError(ErrorBadData, resp.StatusCode, err, "Backend returned an unreadable response")
	}
	if decoded.Success != nil && !*decoded.Success {
		msg := decoded.Message
		if msg == "" {
			msg = "Backend rejected the event"
		}
		return nil, newError(ErrorRejected, resp.StatusCode, nil, "%s", msg)
	}

	message := decoded.Message
	if message == "" {
		message = "Event created"
	}
	return &ports.EventResponse{
		Success:   true,
		Message:   message,
		EventID:   decoded.MockID,
		Timestamp: decoded.Timestamp,
	}, nil
}

// Health calls GET /health and succeeds on 200.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return newError(ErrorBadData, 0, err, "Unexpected error: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return newError(ErrorRejected, resp.StatusCode, nil, "Backend error: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(ErrorTimeout, 0, err, "Backend request timed out")
	}
	c.logger.WarnContext(ctx, "cannot connect to backend",
		"backend_url", c.baseURL,
		"error", err,
	)
	return newError(ErrorUnavailable, 0, err, "Cannot connect to backend at %s", c.baseURL)
}
