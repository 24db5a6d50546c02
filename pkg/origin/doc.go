// Package origin validates attacker-influenced redirect targets against a
// configured allow-list of trusted origins.
//
// The checker is consulted before any redirect the engine emits and before
// OAuth2 callback/error URLs are accepted, closing open-redirect and
// state-fixation holes. Wildcard entries such as *.example.com or
// https://*.example.com match by subdomain against the parsed origin only,
// never by raw string suffix.
package origin
