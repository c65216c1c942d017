// Package gateway is the single outbound HTTP client of the storefront. Every
// request passes through an interceptor that attaches the current credential.
package gateway

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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// TokenSource yields the current credential, if any. It is read immediately
// before each request is dispatched.
type TokenSource interface {
	Get() (string, bool)
}

// Recorder observes completed calls. status is 0 when no response arrived.
type Recorder interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, int, time.Duration) {}

type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
	metrics Recorder
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]

	onUnauthorized func()
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker trips after s.ConsecutiveFailures transport errors or 5xx
// responses and fails fast for s.OpenTimeout. 4xx responses never trip it.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		if s.ConsecutiveFailures == 0 {
			c.breaker = nil
			return
		}
		c.breaker = newBreaker(s, c)
	}
}

// WithUnauthorizedHook registers fn to run whenever the API answers 401.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// NewClient builds the gateway. base is the fixed API endpoint; httpClient may
// be nil. Its transport is wrapped by the credential interceptor and otelhttp.
func NewClient(base string, tokens TokenSource, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", base)
	}

	hc := &http.Client{Timeout: 30 * time.Second}
	if httpClient != nil {
		cp := *httpClient
		hc = &cp
	}
	inner := hc.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(&authTransport{base: inner, tokens: tokens})

	c := &Client{
		baseURL: u,
		http:    hc,
		logger:  slog.Default(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// authTransport is the outbound interceptor. It is stateless per request.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if tok, ok := t.tokens.Get(); ok {
		r.Header.Set("Authorization", "Bearer "+tok)
	} else {
		r.Header.Del("Authorization")
	}
	if r.Header.Get("X-Request-ID") == "" {
		r.Header.Set("X-Request-ID", uuid.NewString())
	}
	return t.base.RoundTrip(r)
}

type call struct {
	route   string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string

	// skipAuthHook marks calls whose 401 rejects credentials rather than
	// the stored session.
	skipAuthHook bool
}

// do sends a call and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	raw, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.route, err)
	}
	return nil
}

// send performs the call and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, cl call) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", cl.route, err)
		}
	}

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.execute(req)
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		c.metrics.ObserveRequest(cl.route, status, elapsed)
		c.logger.WarnContext(ctx, "api call failed",
			slog.String("route", cl.route),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", cl.route, err)
	}
	c.metrics.ObserveRequest(cl.route, resp.StatusCode, elapsed)

	if resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		if apiErr.StatusCode == http.StatusUnauthorized && !cl.skipAuthHook {
			c.fireUnauthorized()
		}
		c.logger.InfoContext(ctx, "api call rejected",
			slog.String("route", cl.route),
			slog.Int("status", apiErr.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, fmt.Errorf("%s: %w", cl.route, apiErr)
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", cl.route, err)
	}
	c.logger.DebugContext(ctx, "api call succeeded",
		slog.String("route", cl.route),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", elapsed),
	)
	return raw, nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u := c.baseURL.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", cl.route, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cl.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// execute runs the request through the breaker when one is configured.
// 5xx responses are converted to errors inside the breaker so they count as
// failures; other statuses are returned to the caller untouched.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	run := func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, errorFromResponse(resp)
		}
		return resp, nil
	}

	if c.breaker == nil {
		return run()
	}
	resp, err := c.breaker.Execute(run)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return resp, err
}

func (c *Client) fireUnauthorized() {
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func newBreaker(s BreakerSettings, c *Client) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}
