// Package outbound is the single path for calls to third-party HTTP APIs
// (OpenAI, Anthropic, Resend, WhatsApp, push services). Every call goes through
// a circuit breaker so a dead upstream fails fast instead of holding a request
// open for the full timeout. Calls are made exactly once; letter deliveries
// are not idempotent upstream, so there is no retry loop here.
package outbound

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker for an upstream is open.
var ErrCircuitOpen = errors.New("outbound: circuit open")

// errUpstreamStatus marks a response the breaker should count as a failure.
// It never leaves this package; the response itself is returned to the caller.
var errUpstreamStatus = errors.New("outbound: upstream failure status")

// Client wraps an *http.Client with a circuit breaker.
type Client struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests use the one from
// httptest.Server).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithBreakerSettings overrides the default breaker thresholds.
func WithBreakerSettings(s gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker[*http.Response](s) }
}

// New returns a Client named after the upstream it talks to. The name shows up
// in breaker state and error messages.
func New(name string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil
			},
		}),
		userAgent: "love-letters-backend/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req once. 5xx and 429 responses count against the breaker but are
// still returned to the caller, which owns closing the body and interpreting
// the status. Transport errors and an open breaker are returned as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if reqID := middleware.GetReqID(req.Context()); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, errUpstreamStatus
		}
		return r, nil
	})

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errUpstreamStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.breaker.Name())
	default:
		return nil, err
	}
}

// State reports the breaker state, e.g. for readiness output.
func (c *Client) State() string {
	return c.breaker.State().String()
}
