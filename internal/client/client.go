// Package client implements the HTTP client for the Flow Store Service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rendis/flowcanvas/pkg/schema"
)

const defaultTimeout = 30 * time.Second

// Client talks JSON over HTTP to a Flow Store Service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the service at baseURL, e.g. "http://localhost:5001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAgents fetches the full agent set.
func (c *Client) ListAgents(ctx context.Context) ([]*schema.Agent, error) {
	var agents []*schema.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// CreateAgent persists a new agent. The returned agent carries the
// service-assigned id and any server-normalized fields.
func (c *Client) CreateAgent(ctx context.Context, a *schema.Agent) (*schema.Agent, error) {
	created := &schema.Agent{}
	if err := c.do(ctx, http.MethodPost, "/api/agents", a, created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAgent sends the full agent state for the given id.
func (c *Client) UpdateAgent(ctx context.Context, a *schema.Agent) (*schema.Agent, error) {
	updated := &schema.Agent{}
	if err := c.do(ctx, http.MethodPut, "/api/agents/"+a.ID, a, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAgent removes an agent. The service also removes connections
// referencing it.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/"+id, nil, nil)
}

// ListConnections fetches the full connection set.
func (c *Client) ListConnections(ctx context.Context) ([]*schema.Connection, error) {
	var conns []*schema.Connection
	if err := c.do(ctx, http.MethodGet, "/api/connections", nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// CreateConnection persists a new connection.
func (c *Client) CreateConnection(ctx context.Context, conn *schema.Connection) (*schema.Connection, error) {
	created := &schema.Connection{}
	if err := c.do(ctx, http.MethodPost, "/api/connections", conn, created); err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteConnection removes a single connection.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/connections/"+id, nil, nil)
}

// RunFlow posts an empty payload to the run endpoint. The service executes
// against its own stored state and returns the report.
func (c *Client) RunFlow(ctx context.Context) (*schema.RunReport, error) {
	report := &schema.RunReport{}
	if err := c.do(ctx, http.MethodPost, "/api/flow/run", struct{}{}, report); err != nil {
		return nil, err
	}
	return report, nil
}

// do executes one request/response round trip. Transport failures and
// non-2xx statuses both surface as ErrCodeRemote with the uniform
// "<VERB> <endpoint> failed" message; the controller does not distinguish them.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "marshal %s %s body", method, path).WithCause(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeRemote, "%s %s failed: %v", method, path, err).WithCause(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeRemote, "%s %s failed: %v", method, path, err).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return schema.NewError(schema.ErrCodeRemote,
			fmt.Sprintf("%s %s failed: %s", method, path, resp.Status)).
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return schema.NewErrorf(schema.ErrCodeRemote, "%s %s failed: decode response", method, path).WithCause(err)
	}
	return nil
}
