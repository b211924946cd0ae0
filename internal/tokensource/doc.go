// Package tokensource refreshes stored grants against an OAuth2 token endpoint.
//
// Only the refresh_token grant is used; obtaining the first grant is left to
// whatever issued it.
//
//	r := tokensource.NewRefresher(oauth2.Endpoint{TokenURL: tokenURL}, clientID, clientSecret, scopes)
//	attrs, err := r.Refresh(ctx, storedAttrs)
//
// # Custom Base Transport
//
// Configure a custom base transport for refresh requests (e.g., for proxies or custom timeouts):
//
//	r := tokensource.NewRefresher(
//		endpoint, clientID, clientSecret, scopes,
//		tokensource.WithTransport(customTransport),
//	)
package tokensource
