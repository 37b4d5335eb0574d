// Package httpapi implements the backend plan service over HTTP JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fwojciec/planreview"
)

// Compile-time interface verification.
var _ planreview.PlanService = (*Client)(nil)

// HTTPDoer describes the HTTP client used by the plan service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the backend that owns the authoritative plan state.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.client = doer }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// FetchPlan returns the full authoritative state of a plan.
func (c *Client) FetchPlan(ctx context.Context, planID string) (*planreview.Plan, error) {
	const op = "fetch plan"
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/plans/%s", planID), nil)
	if err != nil {
		return nil, &planreview.TransportError{Op: op, Err: err}
	}

	var plan planreview.Plan
	if err := c.do(op, req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SetChangeStatus persists the accepted/rejected flags for one change.
func (c *Client) SetChangeStatus(ctx context.Context, changeID string, accepted, rejected bool) error {
	const op = "set change status"
	body := struct {
		Accepted bool `json:"accepted"`
		Rejected bool `json:"rejected"`
	}{Accepted: accepted, Rejected: rejected}

	req, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/changes/%s/status", changeID), body)
	if err != nil {
		return &planreview.TransportError{Op: op, Err: err}
	}
	return c.do(op, req, nil)
}

// SetChangeValue persists a reviewer-edited value for one change.
func (c *Client) SetChangeValue(ctx context.Context, changeID string, value *planreview.Value) error {
	const op = "set change value"
	body := struct {
		Value *planreview.Value `json:"value"`
	}{Value: value}

	req, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/changes/%s/value", changeID), body)
	if err != nil {
		return &planreview.TransportError{Op: op, Err: err}
	}
	return c.do(op, req, nil)
}

// BulkUpdate applies a bulk triage action in a single round-trip. An
// idempotency key guards against double application should the transport
// retry underneath us.
func (c *Client) BulkUpdate(ctx context.Context, planID string, bulk planreview.BulkRequest) (int, error) {
	const op = "bulk update"
	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/plans/%s/bulk", planID), bulk)
	if err != nil {
		return 0, &planreview.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var resp struct {
		UpdatedCount int `json:"updated_count"`
	}
	if err := c.do(op, req, &resp); err != nil {
		return 0, err
	}
	return resp.UpdatedCount, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &planreview.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("backend request failed", "op", op, "status", resp.StatusCode)
		return &planreview.TransportError{Op: op, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &planreview.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
