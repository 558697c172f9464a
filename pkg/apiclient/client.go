// Package apiclient is a small typed client for the seminar JSON API. It behaves like the
// browser SPA: cookies are kept in a jar, the XSRF-TOKEN cookie is echoed in the
// X-XSRF-TOKEN header, and a bearer token is attached once signed in.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	cookieXSRFToken = "XSRF-TOKEN"
	headerXSRFToken = "X-XSRF-TOKEN"
	defaultTimeout  = 15 * time.Second
)

// APIError is a non-2xx answer. Message is the server's message, possibly empty.
type APIError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %d", e.StatusCode)
}

// MessageOf returns the server message carried by err, or fallback when there is none.
// Transport failures have no server message and also get fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Meta is the pagination block of list responses.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// envelope is the shape of every JSON response.
type envelope struct {
	Data    json.RawMessage     `json:"data"`
	Meta    *Meta               `json:"meta"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar is replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client signed in.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{base: base, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// SetToken stores the bearer token used on later calls. An empty token signs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Authenticated reports whether a bearer token is set.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// xsrfToken returns the anti-forgery cookie the server set for the API host, or "".
func (c *Client) xsrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == cookieXSRFToken {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

// do sends one request and decodes the envelope. data and meta may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, data interface{}, meta *Meta) (string, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), rd)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.xsrfToken(); tok != "" {
		req.Header.Set(headerXSRFToken, tok)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return "", fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return "", fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	if meta != nil && env.Meta != nil {
		*meta = *env.Meta
	}
	return env.Message, nil
}

// PrimeCSRF fetches the anti-forgery cookie.
func (c *Client) PrimeCSRF(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/csrf-cookie", nil, nil, nil, nil)
	return err
}
