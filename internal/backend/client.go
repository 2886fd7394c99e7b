package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrTransport wraps failures to reach the backend or read its response.
	ErrTransport = errors.New("backend unavailable")
	// ErrUnauthorized is returned when the backend rejects the bearer token.
	ErrUnauthorized = errors.New("backend rejected credentials")
)

// StatusError is a non-2xx backend response other than 401/403.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// MessageOf returns the backend message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// Client talks to the POS backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  aqm.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  aqm.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req.body = bytes.NewReader(raw)
	req.contentType = "application/json"
	return req, nil
}

// do sends req and decodes a 2xx JSON body into dest when dest is not nil.
func (c *Client) do(ctx context.Context, req request, dest any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("backend request failed", "method", req.method, "path", req.path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, req.method, req.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrTransport, req.method, req.path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Debug("backend rejected credentials", "method", req.method, "path", req.path, "status", resp.StatusCode)
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend returned error", "method", req.method, "path", req.path, "status", resp.StatusCode)
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, req.method, req.path, err)
	}

	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// Ping reports whether the backend answers HTTP. Any HTTP status counts as
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, request{method: http.MethodGet, path: "/"}, nil)
	if errors.Is(err, ErrTransport) {
		return err
	}
	return nil
}
