package api

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
)

const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root; endpoint paths are appended to it.
	BaseURL string
	// Timeout bounds each call at the HTTP layer. Callers should also pass a
	// context deadline.
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	UserAgent  string
}

// Client calls the backend's auth endpoints.
type Client struct {
	base      string
	http      *http.Client
	userAgent string
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "storegate"
	}
	return &Client{base: base, http: hc, userAgent: ua}, nil
}

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   json.RawMessage   `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorText reads the envelope's error, which the backend sends either as a
// string or as {"message": "..."}.
func (e *envelope) errorText() string {
	if len(e.Error) > 0 {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return e.Message
}

// do sends one request and decodes the envelope's data into out (when out is
// non-nil). It returns the envelope message for endpoints that only report
// one.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return "", &Error{Network: true, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Network: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Status: resp.StatusCode, Network: true, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return "", nil
		}
		return "", classify(resp.StatusCode, &env)
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &Error{Status: resp.StatusCode, Network: true, Err: errors.New("response is not JSON")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return "", classify(resp.StatusCode, &env)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &Error{Status: resp.StatusCode, Network: true, Err: fmt.Errorf("decode response data: %w", err)}
		}
	}
	return env.Message, nil
}

func classify(status int, env *envelope) *Error {
	e := &Error{
		Status:  status,
		Message: env.errorText(),
		Fields:  env.Fields,
	}
	if status >= 500 {
		e.Network = true
	}
	if e.Message == "" {
		if status >= 200 && status < 300 {
			e.Message = "request failed"
		} else {
			e.Message = http.StatusText(status)
		}
	}
	return e
}
