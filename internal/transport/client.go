package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/oauth2grant/internal/querycodec"
)

const (
	defaultTimeout    = 30 * time.Second
	maxRedirects      = 10
	formContentType   = "application/x-www-form-urlencoded"
	headerUserAgent   = "User-Agent"
	headerContentType = "Content-Type"
)

// PreSendHook mutates an outgoing request right before it is dispatched.
// It must not perform I/O and must be safe for concurrent use.
type PreSendHook func(req *http.Request) error

// Option configures a Client.
type Option func(*config)

type config struct {
	base      http.RoundTripper
	timeout   time.Duration
	userAgent string
	propagate bool
}

// WithBaseTransport sets the RoundTripper requests are dispatched on.
// If not provided, http.DefaultTransport is used.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.base = rt
	}
}

// WithTimeout bounds each request including redirects and reading the body.
// Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent for requests that don't carry one.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithTracePropagation injects W3C trace context headers using the global
// OpenTelemetry propagator when the request context carries a span.
func WithTracePropagation() Option {
	return func(c *config) {
		c.propagate = true
	}
}

// Client sends requests through a hook-enabled transport.
type Client struct {
	httpClient *http.Client
}

// New creates a Client that runs hook on every outgoing request.
func New(hook PreSendHook, opts ...Option) (*Client, error) {
	if hook == nil {
		return nil, errors.New("missing pre-send hook")
	}

	cfg := &config{
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.base == nil {
		cfg.base = http.DefaultTransport
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.timeout,
			Transport: &hookTransport{
				base:      cfg.base,
				hook:      hook,
				userAgent: cfg.userAgent,
				propagate: cfg.propagate,
			},
			CheckRedirect: sameOriginRedirects,
		},
	}, nil
}

// Do sends req. The caller's request is never modified.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Get issues a GET to url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, url, "", nil)
}

// Post issues a POST to url with the given body.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, url, contentType, body)
}

// PostForm issues a form-encoded POST. Blank parameters are dropped.
func (c *Client) PostForm(ctx context.Context, url string, params map[string]any) (*http.Response, error) {
	body := querycodec.Encode(querycodec.Compact(params))
	return c.send(ctx, http.MethodPost, url, formContentType, strings.NewReader(body))
}

// Put issues a PUT to url with the given body.
func (c *Client) Put(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, url, contentType, body)
}

// Delete issues a DELETE to url.
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	return c.send(ctx, http.MethodDelete, url, "", nil)
}

func (c *Client) send(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	return c.httpClient.Do(req)
}

// sameOriginRedirects follows redirects only while scheme and host stay those
// of the original request.
func sameOriginRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	first := via[0].URL
	if req.URL.Scheme != first.Scheme || req.URL.Host != first.Host {
		return http.ErrUseLastResponse
	}
	return nil
}

// hookTransport runs the pre-send hook on a clone of each request.
type hookTransport struct {
	base      http.RoundTripper
	hook      PreSendHook
	userAgent string
	propagate bool
}

// Compile-time check that hookTransport implements http.RoundTripper.
var _ http.RoundTripper = (*hookTransport)(nil)

// RoundTrip implements http.RoundTripper interface.
func (t *hookTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the request it was given
	out := req.Clone(req.Context())

	if t.userAgent != "" && out.Header.Get(headerUserAgent) == "" {
		out.Header.Set(headerUserAgent, t.userAgent)
	}

	if t.propagate && trace.SpanContextFromContext(out.Context()).IsValid() {
		otel.GetTextMapPropagator().Inject(out.Context(), propagation.HeaderCarrier(out.Header))
	}

	if err := t.hook(out); err != nil {
		// RoundTripper contract: the body is closed even on errors
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	return t.base.RoundTrip(out)
}
