// Package jwt implements minimal HS256 JSON Web Token signing and
// verification for stateless session envelopes.
//
// Only HMAC-SHA256 is supported; tokens declaring any other algorithm are
// rejected outright to prevent algorithm confusion attacks. Temporal
// claims (exp, nbf) are validated when the claims type implements
// Valid() error.
package jwt
