// Package api is the gateway to the chat service's REST API.
//
// Every operation returns its payload and an error. Expected failures are
// never panics: the error is always an *errors.APIError whose Kind is one
// of Auth, TwoFactor, Remote or Transport. The client holds no session or
// navigation state; the token is passed to each call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/logging"
)

// DefaultTimeout bounds a request when no option overrides it.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client calls the REST API rooted at a base URL.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    *logging.Logger
	requestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses a copy of hc for requests. Its Timeout is kept
// unless WithTimeout is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent("api")
		}
	}
}

// New creates a Client for baseURL (for example
// "https://discord.com/api/v9").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "parley/1.0",
		logger:    logging.NopLogger(),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the REST root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call. in is JSON-encoded as the body when non-nil;
// out receives the decoded body of a 2xx response when non-nil.
type request struct {
	op     string
	method string
	path   string
	token  string
	in     any
	out    any
	// login marks the one endpoint where 403 means two-factor.
	login bool
}

func (c *Client) do(ctx context.Context, r request) error {
	reqID := c.requestID()
	log := c.logger.With("op", r.op, "request_id", reqID)

	var body io.Reader
	if r.in != nil {
		data, err := json.Marshal(r.in)
		if err != nil {
			return errors.NewAPIError(r.op, errors.KindTransport).WithCause(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return errors.NewAPIError(r.op, errors.KindTransport).WithCause(fmt.Errorf("build request: %w", err))
	}
	if r.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if r.token != "" {
		// The service expects the bare token, without a scheme.
		req.Header.Set("Authorization", r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", "method", r.method, "path", r.path, "error", err.Error())
		return errors.NewAPIError(r.op, errors.KindTransport).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.NewAPIError(r.op, errors.KindTransport).WithStatus(resp.StatusCode).WithCause(fmt.Errorf("read response: %w", err))
	}

	log.Debug("request completed",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if apiErr := classify(r.op, resp.StatusCode, data, r.login); apiErr != nil {
		return apiErr
	}

	if r.out == nil || len(bytes.TrimSpace(data)) == 0 {
		if r.out != nil {
			return errors.NewAPIError(r.op, errors.KindTransport).WithStatus(resp.StatusCode).WithCause(fmt.Errorf("empty response body"))
		}
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return errors.NewAPIError(r.op, errors.KindTransport).WithStatus(resp.StatusCode).WithCause(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classify maps an HTTP status to an outcome. It returns nil for any 2xx.
func classify(op string, status int, body []byte, login bool) *errors.APIError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return errors.NewAPIError(op, errors.KindAuth).WithStatus(status)
	case status == http.StatusForbidden && login:
		return errors.NewAPIError(op, errors.KindTwoFactor).WithStatus(status)
	}

	apiErr := errors.NewAPIError(op, errors.KindRemote).WithStatus(status)
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		apiErr.WithRemoteMessage(eb.Code, eb.Message)
	}
	return apiErr
}
