package authgate

import "errors"

var (
	// Build-time composition failures returned by New.
	ErrMissingAdapter       = errors.New("authgate: adapter is required")
	ErrMissingSecret        = errors.New("authgate: at least one secret is required")
	ErrInvalidBaseURL       = errors.New("authgate: invalid base url")
	ErrDuplicateEndpoint    = errors.New("authgate: duplicate endpoint")
	ErrDuplicateErrorCode   = errors.New("authgate: duplicate error code")
	ErrDuplicateSchemaField = errors.New("authgate: duplicate schema field")
	ErrDuplicatePlugin      = errors.New("authgate: duplicate plugin id")

	// ErrNilResponse is reported when a handler returns neither a
	// response nor an error.
	ErrNilResponse = errors.New("authgate: handler returned nil response")

	// ErrMissingRequiredField is reported by ApplyInput when a required
	// schema field is absent from client input.
	ErrMissingRequiredField = errors.New("authgate: missing required field")
)
