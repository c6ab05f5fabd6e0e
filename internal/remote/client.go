// Package remote implements the HTTP client for the flowlet remote service.
//
// Every operation is a JSON POST to a path under the configured base address.
// Responses are wrapped in an envelope {"data": ..., "message": ...}. Calls
// make exactly one attempt; there are no retries and no client-side timeout
// beyond what the caller's context imposes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the remote service address used when none is configured.
const DefaultBaseURL = "http://localhost:8080"

var (
	// ErrInvalidBaseURL is returned by New for a malformed base address.
	ErrInvalidBaseURL = errors.New("invalid remote base URL")
	// ErrOffline is returned when a remote call is made without a client.
	ErrOffline = errors.New("remote store is not configured")
)

// Response is the envelope returned by every remote endpoint.
type Response[T any] struct {
	Data    *T      `json:"data"`
	Message *string `json:"message,omitempty"`
}

// Client talks to the remote service. A nil *Client is valid and means
// offline mode: Enabled reports false and every call fails with ErrOffline.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	token string
	hc    *http.Client
}

// WithToken makes every request carry "Authorization: Bearer <token>".
// An empty token is ignored.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithHTTPClient sets the underlying HTTP client (default http.DefaultClient).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.hc = hc }
}

// New returns a Client rooted at baseURL. The address must be an absolute
// http or https URL with a host.
func New(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote.New: %w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote.New: %w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("remote.New: %w: missing host in %q", ErrInvalidBaseURL, baseURL)
	}

	o := options{hc: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.hc
	if o.token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token}))
	}
	return &Client{base: u, http: hc}, nil
}

// Enabled reports whether remote calls can be made.
func (c *Client) Enabled() bool { return c != nil }

// BaseURL returns the configured base address ("" when offline).
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.base.String()
}

// Post sends body as JSON to path and decodes the response envelope into out.
// Pass nil out to only check the status.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	if c == nil {
		return fmt.Errorf("remote.Post %s: %w", path, ErrOffline)
	}
	return doJSON(ctx, c.http, c.base.JoinPath(path).String(), path, body, out)
}

// Call posts body to path and decodes the envelope's data as T.
func Call[T any](ctx context.Context, c *Client, path string, body any) (*Response[T], error) {
	var resp Response[T]
	if err := c.Post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
