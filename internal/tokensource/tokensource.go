package tokensource

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/oauth2grant/internal/grant"
)

// ErrNoRefreshToken is returned when the stored grant cannot be refreshed.
var ErrNoRefreshToken = errors.New("grant has no refresh token")

// RefresherOption configures a Refresher.
type RefresherOption func(*refresherConfig)

// refresherConfig holds configuration for NewRefresher.
type refresherConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for refresh requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) RefresherOption {
	return func(c *refresherConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds a single refresh request. Defaults to 30 seconds.
func WithTimeout(timeout time.Duration) RefresherOption {
	return func(c *refresherConfig) {
		c.timeout = timeout
	}
}

// Refresher exchanges refresh tokens for new grant attributes.
type Refresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewRefresher creates a Refresher for the given token endpoint and client.
// clientSecret may be empty for public clients.
func NewRefresher(endpoint oauth2.Endpoint, clientID, clientSecret string, scopes []string, opts ...RefresherOption) *Refresher {
	cfg := &refresherConfig{
		baseTransport: http.DefaultTransport,
		timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Refresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		httpClient: &http.Client{
			Timeout:   cfg.timeout,
			Transport: cfg.baseTransport,
		},
	}
}

// Refresh exchanges the refresh token in current and returns the attributes
// of the refreshed grant. Attributes the token endpoint does not return
// again (token type, MAC parameters, refresh token) are carried over.
func (r *Refresher) Refresh(ctx context.Context, current grant.Attributes) (grant.Attributes, error) {
	refreshToken := current.String(grant.KeyRefreshToken)
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	// oauth2 package injects custom HTTP clients via context (oauth2.HTTPClient key).
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// AccessToken is left empty so the token source always hits the endpoint.
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing grant: %w", err)
	}

	refreshed := grant.AttributesFromOAuth2(tok)
	attrs := maps.Clone(current)
	// Expiry and scope describe the old token and must not survive a refresh.
	delete(attrs, grant.KeyExpiresIn)
	delete(attrs, grant.KeyExpires)
	delete(attrs, grant.KeyScope)
	for key, value := range refreshed {
		if refreshed.String(key) != "" {
			attrs[key] = value
		}
	}
	return attrs, nil
}
