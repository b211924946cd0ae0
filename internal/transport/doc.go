// Package transport is the HTTP client a grant dispatches its requests through.
//
// A Client is created with exactly one PreSendHook. The hook runs inside the
// client's http.RoundTripper on a clone of every outgoing request, including
// requests re-issued while following redirects, and may rewrite headers, URL or
// body before the request is handed to the base transport:
//
//	client, err := transport.New(func(req *http.Request) error {
//		req.Header.Set("Authorization", "Bearer "+token)
//		return nil
//	})
//
// When the hook returns an error the request is not sent and the error is
// returned from the verb method (wrapped in a *url.Error by net/http).
//
// # Redirects
//
// Redirects are only followed while they stay on the origin of the first
// request. A redirect to another scheme, host or port is returned to the
// caller as-is so credentials are never attached to a foreign origin.
package transport
