// Package http is the outgoing client for the stall's own API. The CLI
// watcher uses it both to poll the read endpoints and to follow the event
// stream:
//
//	c := http.New("http://localhost:8080", http.WithToken(token))
//	var order Order
//	err := c.GetJSON(ctx, "/api/orders/"+id, &order)
//	err = c.Stream(ctx, "/api/events", func(frame []byte) error { ... })
package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"strings"
	"time"
)

var defaultTransport = &gohttp.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is shared by every Client built without WithTransport.
// testkit swaps its Transport to intercept calls.
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// StatusError is a non-2xx answer, carrying the envelope message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http: status %d", e.Code)
	}
	return fmt.Sprintf("http: status %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == gohttp.StatusNotFound
}

// Client talks to one API base URL.
type Client struct {
	base  string
	token string
	hc    *gohttp.Client
}

type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTransport uses a private client over rt instead of DefaultClient.
func WithTransport(rt gohttp.RoundTripper) Option {
	return func(c *Client) { c.hc = &gohttp.Client{Transport: rt} }
}

func New(base string, opts ...Option) *Client {
	c := &Client{base: strings.TrimRight(base, "/")}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) client() *gohttp.Client {
	if c.hc != nil {
		return c.hc
	}
	return DefaultClient
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*gohttp.Request, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("http: marshal body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := gohttp.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends body (JSON-encoded when non-nil) and decodes the envelope's data
// into dest when dest is non-nil. A non-2xx answer yields a *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, dest any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("http: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http: read body: %w", err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: env.Message}
	}
	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("http: decode data: %w", err)
	}
	return nil
}

// GetJSON is Do with GET and no body.
func (c *Client) GetJSON(ctx context.Context, path string, dest any) error {
	return c.Do(ctx, gohttp.MethodGet, path, nil, dest)
}

// Stream follows a server-sent event stream, calling fn with the payload of
// every data frame. It returns when ctx ends (nil), the server closes the
// stream (io.ErrUnexpectedEOF) or fn fails.
func (c *Client) Stream(ctx context.Context, path string, fn func(frame []byte) error) error {
	req, err := c.newRequest(ctx, gohttp.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("http: stream %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	var data bytes.Buffer
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			frame := bytes.Clone(data.Bytes())
			data.Reset()
			if err := fn(frame); err != nil {
				return err
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("http: stream %s: %w", path, err)
	}
	return io.ErrUnexpectedEOF
}
