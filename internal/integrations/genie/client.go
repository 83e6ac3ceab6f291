package genie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// TokenSource supplies the bearer token attached to authenticated requests.
// It is consulted on every request; an empty token sends no header.
type TokenSource interface {
	AccessToken() string
}

// HTTPStatusError captures non-2xx backend responses. Detail and Fields are
// filled from the body when it carries {"detail": ...} or per-field messages.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
	Detail     string
	Fields     map[string]string
}

func (e *HTTPStatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("genie: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Detail)
	}
	return fmt.Sprintf("genie: unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) ServerMessage() string {
	return e.Detail
}

func (e *HTTPStatusError) FieldErrors() map[string]string {
	return e.Fields
}

// Client talks to the Mein Genie backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("genie: base URL must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("genie: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into
// out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, authenticated bool, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("genie: marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("genie: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authenticated {
		c.authorize(req)
	}

	raw, err := c.do(req, target)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("genie: decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, target string) ([]byte, error) {
	start := time.Now()
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		c.logger.Debug("genie request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, fmt.Errorf("genie: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	c.logger.Debug("genie request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Warn("genie non-2xx response", "method", req.Method, "path", req.URL.Path, "status", res.StatusCode)
		return nil, newHTTPStatusError(res.StatusCode, target, buf)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("genie: read response body: %w", err)
	}
	return buf, nil
}

// newHTTPStatusError extracts a human message from common error body shapes:
// {"detail": "..."}, {"error": "..."}, {"message": "..."} and
// {"field": ["msg", ...]} / {"field": "msg"}.
func newHTTPStatusError(status int, target string, body []byte) *HTTPStatusError {
	e := &HTTPStatusError{StatusCode: status, URL: target, Body: string(body)}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	for _, key := range []string{"detail", "error", "message"} {
		if raw, ok := payload[key]; ok {
			if s := firstString(raw); s != "" {
				e.Detail = s
				delete(payload, key)
				break
			}
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg := firstString(payload[k])
		if msg == "" {
			continue
		}
		if k == "non_field_errors" {
			if e.Detail == "" {
				e.Detail = msg
			}
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		e.Fields[k] = msg
	}
	return e
}

func firstString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
