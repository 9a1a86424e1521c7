// Package labapi is the JSON-over-HTTP client of the external strategy and
// backtest execution service.
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"strategy-lab/internal/observability"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// Client talks to the execution service. Requests are never retried: a failed
// call is reported once and the caller decides whether to try again.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the error envelope of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// post sends payload to path and returns the raw 2xx response body.
func (c *Client) post(ctx context.Context, op, path string, payload any) (_ []byte, err error) {
	start := time.Now()
	defer func() {
		observability.RecordServiceCall(path, time.Since(start).Seconds(), err)
	}()

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := genericFailure
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err == nil && strings.TrimSpace(eb.Error) != "" {
			msg = eb.Error
		}
		return nil, &ServiceError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return data, nil
}

// postJSON posts payload and decodes the (possibly string-wrapped) response into out.
func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any) error {
	data, err := c.post(ctx, op, path, payload)
	if err != nil {
		return err
	}
	doc, err := unwrapDocument(data)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
