package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/oauth2grant/internal/grant"
	"github.com/florianilch/oauth2grant/internal/querycodec"
	"github.com/florianilch/oauth2grant/internal/tokensource"
	"github.com/florianilch/oauth2grant/internal/transport"
)

// ErrRefreshDisabled is returned by Refresh when no token endpoint is configured.
var ErrRefreshDisabled = errors.New("refresh not configured (refresh.token_url is empty)")

// App wires configuration, storage and grants together for the CLI.
type App struct {
	cfg       *Config
	grant     *PersistentGrant
	refresher *tokensource.Refresher
}

// New creates a new App instance. No I/O is performed until a grant is needed.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Storage.NewGrantStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create grant store: %w", err)
	}

	persistent, err := NewPersistentGrant(newGrantFactory(cfg.HTTP), store)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistent grant: %w", err)
	}

	a := &App{
		cfg:   cfg,
		grant: persistent,
	}

	if cfg.Refresh.TokenURL != "" {
		a.refresher = tokensource.NewRefresher(
			oauth2.Endpoint{TokenURL: cfg.Refresh.TokenURL, AuthStyle: authStyle(cfg.Refresh.AuthStyle)},
			cfg.Refresh.ClientID,
			cfg.Refresh.ClientSecret,
			cfg.Refresh.Scopes,
			tokensource.WithTimeout(cfg.HTTP.Timeout),
		)
	}

	return a, nil
}

// newGrantFactory constructs grants bound to a client configured from cfg.
func newGrantFactory(cfg HTTPConfig) GrantFactory {
	opts := []transport.Option{transport.WithTimeout(cfg.Timeout)}
	if cfg.UserAgent != "" {
		opts = append(opts, transport.WithUserAgent(cfg.UserAgent))
	}
	if cfg.TracePropagation {
		opts = append(opts, transport.WithTracePropagation())
	}

	return func(attrs grant.Attributes) (grant.AccessGrant, error) {
		return grant.New(attrs, grant.WithTransportOptions(opts...))
	}
}

func authStyle(style string) oauth2.AuthStyle {
	switch style {
	case "header":
		return oauth2.AuthStyleInHeader
	case "params":
		return oauth2.AuthStyleInParams
	default:
		return oauth2.AuthStyleAutoDetect
	}
}

// Grant returns the stored grant.
func (a *App) Grant() (grant.AccessGrant, error) {
	return a.grant.Grant()
}

// Save stores attrs as the new grant after checking they form a valid grant.
func (a *App) Save(ctx context.Context, attrs grant.Attributes) (grant.AccessGrant, error) {
	g, err := a.grant.Replace(ctx, attrs)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "grant saved", "scheme", g.Scheme(), "storage", a.cfg.Storage.Type)
	return g, nil
}

// Refresh exchanges the stored refresh token and persists the result.
func (a *App) Refresh(ctx context.Context) (grant.AccessGrant, error) {
	if a.refresher == nil {
		return nil, ErrRefreshDisabled
	}

	current, err := a.grant.Attributes()
	if err != nil {
		return nil, err
	}

	refreshed, err := a.refresher.Refresh(ctx, current)
	if err != nil {
		return nil, err
	}

	g, err := a.grant.Replace(ctx, refreshed)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "grant refreshed", "scheme", g.Scheme())
	return g, nil
}

// Request describes one call made on behalf of the grant.
type Request struct {
	Method string
	URL    string
	// Form is sent form-encoded for POST and PUT.
	Form map[string]any
}

// Result is the outcome of one Request.
type Result struct {
	Request Request
	Status  int
	Bytes   int64
	Err     error
}

// Send issues reqs concurrently through the grant, at most
// cfg.Concurrency at a time. Transport failures are reported per request;
// a signing failure cancels the remaining requests and is returned.
func (a *App) Send(ctx context.Context, reqs []Request) ([]Result, error) {
	g, err := a.Grant()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(reqs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.cfg.Concurrency)

	for i, req := range reqs {
		eg.Go(func() error {
			results[i] = send(egCtx, g, req)
			if errors.Is(results[i].Err, grant.ErrSigning) {
				return results[i].Err
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func send(ctx context.Context, g grant.AccessGrant, req Request) Result {
	res := Result{Request: req}

	var (
		resp *http.Response
		err  error
	)
	switch strings.ToUpper(req.Method) {
	case "", http.MethodGet:
		resp, err = g.Get(ctx, req.URL)
	case http.MethodDelete:
		resp, err = g.Delete(ctx, req.URL)
	case http.MethodPost:
		resp, err = g.PostForm(ctx, req.URL, req.Form)
	case http.MethodPut:
		body := strings.NewReader(querycodec.Encode(querycodec.Compact(req.Form)))
		resp, err = g.Put(ctx, req.URL, "application/x-www-form-urlencoded", body)
	default:
		res.Err = fmt.Errorf("unsupported method %q", req.Method)
		return res
	}
	if err != nil {
		res.Err = err
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	res.Status = resp.StatusCode
	res.Bytes, res.Err = io.Copy(io.Discard, resp.Body)

	slog.DebugContext(ctx, "request completed",
		"method", resp.Request.Method,
		"url", resp.Request.URL.Redacted(),
		"status", resp.StatusCode,
	)
	return res
}
