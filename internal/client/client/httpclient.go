package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/buildinfo"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is buffered.
const maxBodySize = 8 << 20

// RequestHook mutates an outgoing request before it is sent. A hook error
// aborts the request.
type RequestHook func(ctx context.Context, req *http.Request) error

// ResponseHandler inspects a finished exchange. Returning false stops the
// pipeline; the caller still receives the mapped error.
type ResponseHandler func(ctx context.Context, ex *Exchange) bool

// Exchange is one request and its outcome. Response is nil when the request
// never got one, in which case Err is set.
type Exchange struct {
	Op       string
	Route    string
	Request  *http.Request
	Response *http.Response
	Body     []byte
	Err      error
	Duration time.Duration
}

// Request describes a call relative to the base URL. Route is the path
// template used for metrics ("/products/{id}"); Path is the concrete path.
// At most one of JSON and Form is set.
type Request struct {
	Op     string
	Method string
	Route  string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
}

type HTTPClient struct {
	baseURL  string
	http     *http.Client
	headers  http.Header
	hooks    []RequestHook
	handlers []ResponseHandler
	log      logging.Logger
}

type Option func(*HTTPClient)

// WithTimeout sets the uniform request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.http.Transport = rt }
}

// WithRequestHooks appends hooks; they run in the given order.
func WithRequestHooks(hooks ...RequestHook) Option {
	return func(c *HTTPClient) { c.hooks = append(c.hooks, hooks...) }
}

// WithResponseHandlers appends handlers; they run in the given order.
func WithResponseHandlers(handlers ...ResponseHandler) Option {
	return func(c *HTTPClient) { c.handlers = append(c.handlers, handlers...) }
}

func WithHeader(key, value string) Option {
	return func(c *HTTPClient) { c.headers.Set(key, value) }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		headers: http.Header{},
		log:     logging.NewNop(),
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("User-Agent", buildinfo.UserAgent())

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) Timeout() time.Duration { return c.http.Timeout }

// Do sends r, runs the response pipeline and decodes a successful JSON body
// into out (when out is non-nil). Every failure is a *common.Error.
func (c *HTTPClient) Do(ctx context.Context, r Request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		c.log.Error(ctx, "failed to build request", "op", r.Op, "error", err)
		return &common.Error{Kind: common.KindUnknown, Op: r.Op, Err: err}
	}

	for _, hook := range c.hooks {
		if err := hook(ctx, req); err != nil {
			return transportError(r.Op, fmt.Errorf("request hook: %w", err))
		}
	}

	ex := c.send(req)
	ex.Op, ex.Route = r.Op, r.Route

	for _, h := range c.handlers {
		if !h(ctx, ex) {
			break
		}
	}

	if err := mapError(r.Op, ex); err != nil {
		return err
	}

	if out == nil || ex.Response.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(ex.Body, out); err != nil {
		c.log.Warn(ctx, "undecodable response body", "op", r.Op, "status", ex.Response.StatusCode, "error", err)
		return &common.Error{
			Kind:   common.KindServer,
			Op:     r.Op,
			Status: ex.Response.StatusCode,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + r.Path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *HTTPClient) send(req *http.Request) *Exchange {
	ex := &Exchange{Request: req}
	start := time.Now()
	defer func() { ex.Duration = time.Since(start) }()

	resp, err := c.http.Do(req)
	if err != nil {
		ex.Err = err
		return ex
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		ex.Err = fmt.Errorf("read response: %w", err)
		return ex
	}
	ex.Response = resp
	ex.Body = body
	return ex
}
