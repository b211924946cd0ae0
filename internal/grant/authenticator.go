package grant

import (
	"fmt"
	"net/http"

	"github.com/florianilch/oauth2grant/internal/transport"
)

// signer is the per-variant signing step.
type signer interface {
	Authenticate(req *http.Request) error
}

// authenticator returns the pre-send hook for one grant. It holds no state of
// its own, so concurrent dispatches are signed independently.
func authenticator(s signer) transport.PreSendHook {
	return func(req *http.Request) error {
		if err := s.Authenticate(req); err != nil {
			return fmt.Errorf("authenticating %s %s: %w", req.Method, req.URL.Redacted(), err)
		}
		return nil
	}
}
