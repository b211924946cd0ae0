// Package redirecturi builds OAuth2 redirect URIs and decides whether a
// runtime-supplied redirect URI is covered by a registered one.
package redirecturi

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/florianilch/oauth2grant/internal/querycodec"
)

// ErrInvalidURI is returned when a base URI is not an absolute URI.
var ErrInvalidURI = errors.New("invalid URI")

// Location selects where redirect parameters are placed.
type Location string

const (
	// LocationQuery appends parameters to the query component.
	LocationQuery Location = "query"
	// LocationFragment replaces the fragment with the parameters.
	LocationFragment Location = "fragment"
)

// ParseLocation maps "query" or "fragment" to a Location.
func ParseLocation(s string) (Location, error) {
	switch l := Location(strings.ToLower(s)); l {
	case LocationQuery, LocationFragment:
		return l, nil
	default:
		return "", fmt.Errorf("unknown redirect location %q (expected query or fragment)", s)
	}
}

// Build returns baseURI with params attached at loc. Blank parameters are
// dropped and the rest are encoded with querycodec, so keys come out sorted.
func Build(baseURI string, loc Location, params map[string]any) (string, error) {
	u, err := parseAbsolute(baseURI)
	if err != nil {
		return "", err
	}

	encoded := querycodec.Encode(querycodec.Compact(params))

	switch loc {
	case LocationQuery:
		if encoded != "" {
			if u.RawQuery != "" {
				u.RawQuery += "&" + encoded
			} else {
				u.RawQuery = encoded
			}
		}
		return u.String(), nil
	case LocationFragment:
		// url.URL would re-escape the percent signs of an already encoded
		// fragment, so it is attached by hand.
		u.Fragment = ""
		u.RawFragment = ""
		return u.String() + "#" + encoded, nil
	default:
		return "", fmt.Errorf("unknown redirect location %q", loc)
	}
}

// IsTrusted reports whether candidate is covered by the registered base URI:
// scheme, host and port must be equal and the candidate path must start with
// the base path. Empty paths count as "/". Anything that fails to parse is
// untrusted.
func IsTrusted(base, candidate string) bool {
	b, err := parseAbsolute(base)
	if err != nil {
		return false
	}
	c, err := parseAbsolute(candidate)
	if err != nil {
		return false
	}

	if b.Scheme != c.Scheme || !strings.EqualFold(b.Hostname(), c.Hostname()) || port(b) != port(c) {
		return false
	}
	return strings.HasPrefix(pathOf(c), pathOf(b))
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURI, raw)
	}
	return u, nil
}

func pathOf(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// port returns the explicit port or the scheme default, so that
// https://host and https://host:443 compare equal.
func port(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch u.Scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}
