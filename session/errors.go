package session

import "errors"

var (
	// ErrSessionNotFound indicates no session matches the token.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrSessionExpired indicates the session exists but has expired.
	ErrSessionExpired = errors.New("session.expired")

	// ErrSessionRevoked indicates a stateless token was denylisted.
	ErrSessionRevoked = errors.New("session.revoked")

	// ErrTokenGeneration indicates token generation failed.
	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrNotSupported indicates the operation has no meaning in the
	// active session mode.
	ErrNotSupported = errors.New("session.not_supported")
)
