package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrSignatureInvalid = errors.New("token signature mismatch")
	ErrRandomSource     = errors.New("failed to read random source")
)
