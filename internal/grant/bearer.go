package grant

import (
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Bearer is a grant presented as a bearer token (RFC 6750).
type Bearer struct {
	*base
}

// Compile-time checks for Bearer.
var (
	_ AccessGrant        = (*Bearer)(nil)
	_ oauth2.TokenSource = (*Bearer)(nil)
)

// NewBearer constructs a Bearer grant.
func NewBearer(attrs Attributes, opts ...Option) (*Bearer, error) {
	b, err := newBase(SchemeBearer, attrs)
	if err != nil {
		return nil, err
	}
	g := &Bearer{base: b}
	if err := b.bind(g, newOptions(opts)); err != nil {
		return nil, err
	}
	return g, nil
}

// Authenticate sets "Authorization: Bearer <token>".
func (g *Bearer) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	return nil
}

// Token implements oauth2.TokenSource so the grant can back an oauth2.Transport.
// The grant does not track issue time, so Expiry stays zero.
func (g *Bearer) Token() (*oauth2.Token, error) {
	meta := g.Metadata()
	tok := &oauth2.Token{
		AccessToken:  g.accessToken,
		TokenType:    "Bearer",
		RefreshToken: meta.RefreshToken,
	}
	if meta.ExpiresIn != nil {
		tok.ExpiresIn = int64(*meta.ExpiresIn)
	}
	return tok.WithExtra(map[string]any{KeyScope: strings.Join(meta.Scope, " ")}), nil
}
