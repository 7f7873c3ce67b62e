// Package transport is a thin JSON-over-HTTP client bound to one base URL.
// It knows nothing about todos; its only job is to send requests and report
// every failure the same way.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Client sends requests below a fixed base URL. It never retries and never
// adds credentials.
type Client struct {
	base    string
	hc      *fasthttp.Client
	timeout time.Duration
	log     *slog.Logger
	metrics *Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client (tests dial an
// in-memory listener this way).
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout bounds every request. Zero keeps fasthttp's own behaviour.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &fasthttp.Client{Name: "todosync"},
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL is the URL every path is resolved against.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, fasthttp.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, fasthttp.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, fasthttp.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, fasthttp.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(method, path, err, time.Since(start)) }()

	fail := func(kind Kind, status int, cause error) error {
		return &Error{Kind: kind, Method: method, Path: path, Status: status, Err: cause}
	}
	if err := ctx.Err(); err != nil {
		return fail(KindNetwork, 0, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.base + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	reqID := uuid.NewString()
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(KindDecode, 0, fmt.Errorf("encode body: %w", err))
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(b)
	}

	log := c.log.With("method", method, "path", path, "request_id", reqID)
	log.Debug("request")

	if deadline, ok := c.deadline(ctx); ok {
		err = c.hc.DoDeadline(req, resp, deadline)
	} else {
		err = c.hc.Do(req, resp)
	}
	if err != nil {
		log.Debug("request failed", "err", err)
		return fail(KindNetwork, 0, err)
	}

	status := resp.StatusCode()
	log.Debug("response", "status", status, "took", time.Since(start))
	if status < 200 || status > 299 {
		return fail(KindStatus, status, fmt.Errorf("%s", statusMessage(status, resp.Body())))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fail(KindDecode, status, fmt.Errorf("json unmarshal: %w", err))
	}
	return nil
}

// deadline picks the earlier of the context deadline and the client timeout.
func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	d, ok := ctx.Deadline()
	if c.timeout > 0 {
		t := time.Now().Add(c.timeout)
		if !ok || t.Before(d) {
			return t, true
		}
	}
	return d, ok
}

// statusMessage prefers the API's {"error": "..."} body when present.
func statusMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("%d %s: %s", status, fasthttp.StatusMessage(status), payload.Error)
	}
	return fmt.Sprintf("%d %s", status, fasthttp.StatusMessage(status))
}
