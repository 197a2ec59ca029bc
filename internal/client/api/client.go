// Package api is the authenticated REST client for the relay: sign-in,
// support content, tickets and file uploads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// ErrUnauthorized matches 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// ErrMalformedResponse is returned for a 2xx body that does not decode.
var ErrMalformedResponse = errors.New("malformed response")

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL  string
	http     *http.Client
	log      logging.Logger
	validate *validator.Validate
	retries  uint64

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithLogger(l logging.Logger) Option   { return func(c *Client) { c.log = logging.OrNop(l) } }

// WithRetries sets how many times an idempotent GET is retried.
func WithRetries(n uint64) Option { return func(c *Client) { c.retries = n } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      logging.Nop{},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		retries:  3,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrMalformedResponse, req.Method, req.URL.Path, err)
	}
	return nil
}

// errorMessage prefers the body's "message", then "error", then the status.
func errorMessage(status int, body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		switch v := e.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("status %d", status)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// getJSON retries network failures and 5xx responses with exponential
// backoff. Other API errors are returned at once.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	op := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return backoff.Permanent(err)
		}
		err = c.do(req, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return backoff.Permanent(err)
		}
		if errors.Is(err, ErrMalformedResponse) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)

	return backoff.RetryNotify(op, policy, func(err error, d time.Duration) {
		c.log.Warn(ctx, "request failed, retrying", "path", path, "in", d, "error", err)
	})
}
