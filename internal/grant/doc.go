// Package grant models an issued OAuth2 access grant and signs outgoing
// requests with it.
//
// Three variants exist, each with its own authentication scheme:
//   - Bearer: "Authorization: Bearer <token>"
//   - Legacy: "Authorization: OAuth <token>", for servers predating RFC 6749
//   - MAC: a per-request HMAC over the request line, host and port
//
// # Construction
//
// Grants are built from the attributes returned by a token endpoint:
//
//	g, err := grant.New(grant.Attributes{
//		"access_token": "SlAV32hkKG",
//		"token_type":   "bearer",
//		"expires_in":   "3600",
//		"scope":        "read write",
//	})
//
// A missing access_token fails with a *MissingAttributeError. The scheme is
// fixed by the variant and cannot be supplied separately.
//
// # Sending Requests
//
// Every grant owns its own transport.Client. The grant's Authenticate method is
// registered as the client's pre-send hook, so each Get, Post, Put or Delete is
// signed right before it leaves the process. A signing failure is returned from
// the verb method and the request is never sent.
//
// # Refresh
//
// The access token and scheme never change. Refresh token, expiry and scope
// can be replaced as a whole with Renew.
package grant
