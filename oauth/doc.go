// Package oauth implements the OAuth2 authorization-code client flow:
// Init -> Redirected(state) -> Callback(state) -> {Linked | NewAccount |
// Failed}.
//
// The flow state (CSRF value, PKCE verifier, redirect URLs, expiry) is
// encrypted and persisted as a single-use verification record; the
// provider-visible state parameter is an HMAC-signed reference to that
// record. A tampered state therefore fails MAC verification and a
// replayed state fails record consumption — neither ever degrades to a
// plain value comparison.
//
// Failures surface as *FlowError values carrying a machine-readable code
// and the vetted error redirect target; the HTTP layer converts them to
// redirects, never to raw error pages.
package oauth
