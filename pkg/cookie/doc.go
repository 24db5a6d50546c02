// Package cookie provides a cookie manager with HMAC-SHA256 signing and a
// single shared attribute policy.
//
// Every component that sets a cookie goes through one Manager so that
// sign-in, sign-out, and plugin-issued cookies carry identical Path,
// Domain, Secure, and SameSite attributes. Signed values are verified in
// constant time; multiple secrets are accepted so keys can be rotated
// without invalidating live cookies.
package cookie
