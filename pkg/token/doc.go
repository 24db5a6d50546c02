// Package token provides compact HMAC-signed value tokens and random
// opaque token generation.
//
// Signed tokens carry a JSON payload and an 8-byte truncated HMAC-SHA256
// signature in the form base64url(payload).base64url(sig). They are meant
// for short-lived values round-tripped through an untrusted party, such as
// an OAuth2 state reference. Random tokens are URL-safe high-entropy
// strings used as session identifiers.
//
// Usage:
//
//	type statePayload struct {
//		Ref string `json:"ref"`
//	}
//
//	tok, err := token.Generate(statePayload{Ref: ref}, secret)
//	payload, err := token.Parse[statePayload](tok, secret)
package token
