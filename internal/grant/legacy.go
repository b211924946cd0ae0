package grant

import (
	"fmt"
	"net/http"
)

// Legacy is a grant for servers implementing pre-final drafts of OAuth2,
// which expect the "OAuth" authorization scheme.
type Legacy struct {
	*base
}

// Compile-time checks for Legacy.
var (
	_ AccessGrant  = (*Legacy)(nil)
	_ fmt.Stringer = (*Legacy)(nil)
)

// NewLegacy constructs a Legacy grant. Expiry is read from expires_in or,
// as those servers send it, expires.
func NewLegacy(attrs Attributes, opts ...Option) (*Legacy, error) {
	b, err := newBase(SchemeLegacy, attrs)
	if err != nil {
		return nil, err
	}
	g := &Legacy{base: b}
	if err := b.bind(g, newOptions(opts)); err != nil {
		return nil, err
	}
	return g, nil
}

// Authenticate sets "Authorization: OAuth <token>".
func (g *Legacy) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "OAuth "+g.accessToken)
	return nil
}

// String returns the access token, for callers that treat the grant as a
// plain token string.
func (g *Legacy) String() string {
	return g.accessToken
}
