package grant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/florianilch/oauth2grant/internal/transport"
)

// Version is reported in the User-Agent of every grant's client.
var Version = "dev"

// Scheme is the authentication scheme of a grant. It doubles as the
// token_type of the serialized grant.
type Scheme string

const (
	SchemeBearer Scheme = "bearer"
	SchemeMAC    Scheme = "mac"
	SchemeLegacy Scheme = "legacy"
)

// AccessGrant is an issued access grant bound to its own HTTP client.
type AccessGrant interface {
	Scheme() Scheme
	AccessToken() string
	Metadata() Metadata
	Renew(Metadata)
	TokenResponse() TokenResponse

	// Authenticate signs req in place.
	Authenticate(req *http.Request) error

	Get(ctx context.Context, url string) (*http.Response, error)
	Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)
	PostForm(ctx context.Context, url string, params map[string]any) (*http.Response, error)
	Put(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)
	Delete(ctx context.Context, url string) (*http.Response, error)
}

// Metadata is the part of a grant a refresh may replace.
type Metadata struct {
	RefreshToken string
	// ExpiresIn is the lifetime in seconds reported by the server, nil if unknown.
	ExpiresIn *int
	Scope     []string
}

func (m Metadata) clone() Metadata {
	m.Scope = slices.Clone(m.Scope)
	if m.ExpiresIn != nil {
		n := *m.ExpiresIn
		m.ExpiresIn = &n
	}
	return m
}

// TokenResponse is the serialized summary of a grant. Absent values are
// rendered as null or "" rather than omitted.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	TokenType    Scheme  `json:"token_type"`
	ExpiresIn    *int    `json:"expires_in"`
	Scope        string  `json:"scope"`
}

// Params returns the response as redirect parameters, e.g. for an implicit
// grant fragment.
func (r TokenResponse) Params() map[string]any {
	params := map[string]any{
		KeyAccessToken: r.AccessToken,
		KeyTokenType:   string(r.TokenType),
		KeyScope:       r.Scope,
	}
	if r.RefreshToken != nil {
		params[KeyRefreshToken] = *r.RefreshToken
	}
	if r.ExpiresIn != nil {
		params[KeyExpiresIn] = *r.ExpiresIn
	}
	return params
}

// Option configures grant construction.
type Option func(*options)

type options struct {
	transportOpts []transport.Option
	now           func() time.Time
}

// WithTransportOptions configures the grant's HTTP client.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, opts...)
	}
}

// WithClock replaces time.Now for MAC timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) *options {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New constructs the variant named by the token_type attribute. A missing
// token_type yields a Bearer grant.
func New(attrs Attributes, opts ...Option) (AccessGrant, error) {
	switch strings.ToLower(attrs.String(KeyTokenType)) {
	case "", string(SchemeBearer):
		return NewBearer(attrs, opts...)
	case string(SchemeMAC):
		return NewMAC(attrs, opts...)
	case string(SchemeLegacy), "oauth":
		return NewLegacy(attrs, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, attrs.String(KeyTokenType))
	}
}

// base holds the fields and behavior shared by all variants.
type base struct {
	scheme      Scheme
	accessToken string
	meta        atomic.Pointer[Metadata]
	client      *transport.Client
}

// newBase validates attrs. Nothing is bound until validation passed.
func newBase(scheme Scheme, attrs Attributes, required ...string) (*base, error) {
	required = append([]string{KeyAccessToken}, required...)
	if missing := attrs.missing(required...); len(missing) > 0 {
		return nil, &MissingAttributeError{Attributes: missing}
	}

	b := &base{
		scheme:      scheme,
		accessToken: attrs.String(KeyAccessToken),
	}
	meta := attrs.Metadata()
	b.meta.Store(&meta)
	return b, nil
}

// bind creates the grant's exclusive client with signer as its pre-send hook.
func (b *base) bind(s signer, o *options) error {
	opts := append([]transport.Option{
		transport.WithUserAgent(fmt.Sprintf("oauth2grant/%s (%s)", b.scheme, Version)),
	}, o.transportOpts...)

	client, err := transport.New(authenticator(s), opts...)
	if err != nil {
		return fmt.Errorf("binding %s grant to transport: %w", b.scheme, err)
	}
	b.client = client

	slog.Debug("access grant constructed", "scheme", b.scheme)
	return nil
}

// Scheme returns the authentication scheme.
func (b *base) Scheme() Scheme { return b.scheme }

// AccessToken returns the opaque token issued by the authorization server.
func (b *base) AccessToken() string { return b.accessToken }

// Metadata returns a copy of the current refresh token, expiry and scope.
func (b *base) Metadata() Metadata {
	return b.meta.Load().clone()
}

// Renew replaces refresh token, expiry and scope in one step.
func (b *base) Renew(m Metadata) {
	m = m.clone()
	b.meta.Store(&m)
}

// TokenResponse serializes the grant.
func (b *base) TokenResponse() TokenResponse {
	meta := b.Metadata()
	resp := TokenResponse{
		AccessToken: b.accessToken,
		TokenType:   b.scheme,
		ExpiresIn:   meta.ExpiresIn,
		Scope:       strings.Join(meta.Scope, " "),
	}
	if meta.RefreshToken != "" {
		resp.RefreshToken = &meta.RefreshToken
	}
	return resp
}

// Get issues a signed GET.
func (b *base) Get(ctx context.Context, url string) (*http.Response, error) {
	return b.client.Get(ctx, url)
}

// Post issues a signed POST.
func (b *base) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return b.client.Post(ctx, url, contentType, body)
}

// PostForm issues a signed form-encoded POST.
func (b *base) PostForm(ctx context.Context, url string, params map[string]any) (*http.Response, error) {
	return b.client.PostForm(ctx, url, params)
}

// Put issues a signed PUT.
func (b *base) Put(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	return b.client.Put(ctx, url, contentType, body)
}

// Delete issues a signed DELETE.
func (b *base) Delete(ctx context.Context, url string) (*http.Response, error) {
	return b.client.Delete(ctx, url)
}
