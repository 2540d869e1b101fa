package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrijs2005/storefront/internal/logging"
)

// Metrics records per-request latency and counts.
type Metrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_client_request_duration_seconds",
				Help:    "Latency of storefront API requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route", "status"},
		),
		total: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_client_requests_total",
				Help: "Total number of storefront API requests",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) Handle(_ context.Context, ex *Exchange) bool {
	status := "error"
	if ex.Response != nil {
		status = strconv.Itoa(ex.Response.StatusCode)
	}
	m.duration.WithLabelValues(ex.Request.Method, ex.Route, status).Observe(ex.Duration.Seconds())
	m.total.WithLabelValues(ex.Request.Method, ex.Route, status).Inc()
	return true
}

// NetworkErrorLogger logs exchanges that produced no response and stops the
// pipeline for them.
func NetworkErrorLogger(log logging.Logger) ResponseHandler {
	return func(ctx context.Context, ex *Exchange) bool {
		if ex.Response != nil {
			return true
		}
		kind := "network"
		if isTimeout(ex.Err) {
			kind = "timeout"
		}
		log.Error(ctx, "request failed without response",
			"op", ex.Op, "method", ex.Request.Method, "url", ex.Request.URL.String(),
			"kind", kind, "error", ex.Err)
		return false
	}
}

// SessionStore is the part of the session store the 401 policy needs.
type SessionStore interface {
	TokenSource
	Clear(ctx context.Context) error
}

// Redirector moves the user to the login route, remembering where they were.
type Redirector interface {
	RedirectToLogin()
}

// UnauthorizedPolicy reacts to 401 responses from any endpoint: it clears the
// session store, redirects to login and notifies subscribers, all before the
// error returns to the caller.
//
// A 401 for a request that carried a token other than the one now stored is
// stale (a newer session replaced it mid-flight) and is ignored, the same way
// an outdated revalidation result is discarded. The newer session stays in
// the store.
type UnauthorizedPolicy struct {
	store    SessionStore
	redirect Redirector
	log      logging.Logger

	mu        sync.Mutex
	listeners []func(ctx context.Context)
}

func NewUnauthorizedPolicy(store SessionStore, redirect Redirector, log logging.Logger) *UnauthorizedPolicy {
	return &UnauthorizedPolicy{store: store, redirect: redirect, log: log}
}

// Subscribe registers fn to run after the store has been cleared.
func (p *UnauthorizedPolicy) Subscribe(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *UnauthorizedPolicy) Handle(ctx context.Context, ex *Exchange) bool {
	if ex.Response == nil || ex.Response.StatusCode != http.StatusUnauthorized {
		return true
	}

	carried := bearerOf(ex.Request)
	current, err := p.store.Token(ctx)
	if err == nil && current != "" && current != carried {
		p.log.Debug(ctx, "ignoring 401 for superseded session", "op", ex.Op)
		return true
	}

	p.log.Info(ctx, "session rejected by server, signing out", "op", ex.Op)
	if err := p.store.Clear(ctx); err != nil {
		p.log.Error(ctx, "failed to clear session", "error", err)
	}
	if p.redirect != nil {
		p.redirect.RedirectToLogin()
	}

	p.mu.Lock()
	listeners := append([]func(context.Context){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx)
	}
	return true
}

// ContractValidator checks responses against an OpenAPI document and logs
// mismatches. It never fails a call.
type ContractValidator struct {
	router routers.Router
	log    logging.Logger
}

// NewContractValidator loads the document at specPath. Its servers are
// replaced with baseURL so routes match the configured API.
func NewContractValidator(ctx context.Context, specPath, baseURL string, log logging.Logger) (*ContractValidator, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	doc.Servers = openapi3.Servers{{URL: baseURL}}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &ContractValidator{router: router, log: log}, nil
}

func (v *ContractValidator) Handle(ctx context.Context, ex *Exchange) bool {
	if ex.Response == nil {
		return true
	}

	route, params, err := v.router.FindRoute(ex.Request)
	if err != nil {
		v.log.Debug(ctx, "route not described by openapi document",
			"method", ex.Request.Method, "path", ex.Request.URL.Path)
		return true
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    ex.Request,
			PathParams: params,
			Route:      route,
		},
		Status: ex.Response.StatusCode,
		Header: ex.Response.Header,
		Body:   io.NopCloser(bytes.NewReader(ex.Body)),
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
			AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		v.log.Warn(ctx, "response contract mismatch",
			"op", ex.Op, "method", ex.Request.Method, "path", ex.Request.URL.Path,
			"status", ex.Response.StatusCode, "error", err)
	}
	return true
}
