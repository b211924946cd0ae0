package grant

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AttributesFromOAuth2 converts a token obtained through golang.org/x/oauth2
// into constructor attributes. MAC parameters and scope are read from the
// token's extra fields when present.
func AttributesFromOAuth2(tok *oauth2.Token) Attributes {
	attrs := Attributes{
		KeyAccessToken:  tok.AccessToken,
		KeyTokenType:    strings.ToLower(tok.TokenType),
		KeyRefreshToken: tok.RefreshToken,
	}

	switch {
	case tok.ExpiresIn > 0:
		attrs[KeyExpiresIn] = tok.ExpiresIn
	case tok.Extra(KeyExpiresIn) != nil:
		attrs[KeyExpiresIn] = tok.Extra(KeyExpiresIn)
	case !tok.Expiry.IsZero():
		attrs[KeyExpiresIn] = int64(time.Until(tok.Expiry).Seconds())
	}

	for _, key := range []string{KeyScope, KeyMACKey, KeyMACAlgorithm} {
		if v := tok.Extra(key); v != nil {
			attrs[key] = v
		}
	}
	return attrs
}
