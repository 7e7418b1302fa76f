// Package remote is the HTTP client for the authoritative upstream bill
// store. The edge replica reads snapshots from it and pushes optimistic
// writes to it; it never retries on its own.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

// Client talks to the upstream contas API. Mutating calls carry the session
// token; an upstream 401 invalidates the cached credential via the
// OnUnauthorized hook before the error is propagated.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	token          func() string
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithToken installs the session token provider.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// WithOnUnauthorized installs the credential invalidation hook.
func WithOnUnauthorized(hook func()) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the upstream response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// List fetches the full authoritative snapshot.
func (c *Client) List(ctx context.Context) ([]core.Bill, error) {
	var bills []wireBill
	if err := c.do(ctx, http.MethodGet, "/api/contas", nil, &bills); err != nil {
		return nil, err
	}
	return fromWire(bills)
}

// Insert creates a bill upstream; the server assigns the id.
func (c *Client) Insert(ctx context.Context, b core.Bill) (core.Bill, error) {
	var saved wireBill
	if err := c.do(ctx, http.MethodPost, "/api/contas", toWire(b), &saved); err != nil {
		return core.Bill{}, err
	}
	return saved.toBill()
}

// Update applies a partial merge upstream.
func (c *Client) Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error) {
	var saved wireBill
	if err := c.do(ctx, http.MethodPatch, "/api/contas/"+id, patchBody(p), &saved); err != nil {
		return core.Bill{}, err
	}
	return saved.toBill()
}

// Delete removes a bill upstream.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/contas/"+id, nil, nil)
}

// CreateGroup creates a whole installment plan upstream in one call so the
// all-or-nothing guarantee holds server-side.
func (c *Client) CreateGroup(ctx context.Context, body GroupRequest) ([]core.Bill, error) {
	var bills []wireBill
	if err := c.do(ctx, http.MethodPost, "/api/contas/group", body, &bills); err != nil {
		return nil, err
	}
	return fromWire(bills)
}

// GroupRequest is the upstream payload for installment plan creation.
type GroupRequest struct {
	Description  string      `json:"description"`
	Method       string      `json:"method"`
	Bank         string      `json:"bank"`
	Notes        string      `json:"notes,omitempty"`
	Frequency    string      `json:"frequency,omitempty"`
	Installments []GroupLine `json:"installments"`
}

// GroupLine is one installment of a plan request.
type GroupLine struct {
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("X-Session-Token", tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, core.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return core.ErrUnauthorized
	}
	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, core.ErrUpstreamUnavailable)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, core.ErrUpstreamUnavailable)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return fmt.Errorf("upstream rejected %s %s: %s", method, path, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %v: %w", err, core.ErrUpstreamUnavailable)
		}
	}
	return nil
}

func patchBody(p storage.Patch) map[string]any {
	body := make(map[string]any)
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.AmountCents != nil {
		body["amount_cents"] = *p.AmountCents
	}
	if p.DueDate != nil {
		body["due_date"] = p.DueDate.String()
	}
	if p.PaymentDate != nil {
		// The zero date clears the field; the server expects "".
		body["payment_date"] = p.PaymentDate.String()
	}
	if p.Method != nil {
		body["method"] = string(*p.Method)
	}
	if p.Bank != nil {
		body["bank"] = *p.Bank
	}
	if p.Notes != nil {
		body["notes"] = *p.Notes
	}
	if p.Frequency != nil {
		body["frequency"] = string(*p.Frequency)
	}
	if p.Status != nil {
		body["status"] = string(*p.Status)
	}
	return body
}
