// Package n8n is a client for the n8n REST API and webhook endpoints.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a single n8n instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates an n8n client. baseURL should be the instance root
// (e.g. "http://localhost:5678"), without a trailing slash.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-200 response from the n8n REST API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("n8n: API error %d: %s", e.Status, e.Body)
}

// ── ListWorkflows ─────────────────────────────────────────────────────────────

// ListWorkflows returns every workflow on the instance, following
// nextCursor pagination until the cursor is absent or empty.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var workflows []Workflow
	cursor := ""

	for {
		page, err := c.fetchWorkflowsPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, page.Data...)

		if page.NextCursor == nil || *page.NextCursor == "" {
			return workflows, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) fetchWorkflowsPage(ctx context.Context, cursor string) (*workflowsResponse, error) {
	u := c.baseURL + "/api/v1/workflows"
	if cursor != "" {
		u += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("n8n: fetch workflows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page workflowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("n8n: decode workflows page: %w", err)
	}
	return &page, nil
}

// ── ForwardEvent ──────────────────────────────────────────────────────────────

// ForwardEvent POSTs the raw body to a webhook URL with the supplied headers.
// The body is sent byte-for-byte: re-serializing it would invalidate any
// signature computed over the original bytes.
//
// The n8n status code is returned for any HTTP response, including non-2xx;
// an error means no response was obtained at all.
func (c *Client) ForwardEvent(ctx context.Context, webhookURL string, body []byte, headers http.Header) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("n8n: build forward request: %w", err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("n8n: forward to %s: %w", webhookURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
