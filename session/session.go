package session

import (
	"context"
	"time"

	"github.com/mkravets/authgate/adapter"
)

// Auth pairs a validated session with its user.
type Auth struct {
	User    *adapter.User    `json:"user"`
	Session *adapter.Session `json:"session"`
}

// Meta carries request metadata recorded on session creation.
type Meta struct {
	IPAddress string
	UserAgent string
}

// Manager is the session lifecycle contract shared by the database and
// stateless modes.
type Manager interface {
	// Create establishes a session for the user and returns the auth pair
	// plus the raw token handed to the client.
	Create(ctx context.Context, userID string, meta Meta) (*Auth, string, error)

	// Validate resolves a token to its auth pair. With refresh enabled, a
	// qualifying read slides the expiry; the returned token is non-empty
	// when the client's token (or its cookie lifetime) must be replaced.
	Validate(ctx context.Context, token string, refresh bool) (*Auth, string, error)

	// Refresh forces a sliding-expiry extension.
	Refresh(ctx context.Context, token string) (*Auth, string, error)

	// Revoke invalidates one session.
	Revoke(ctx context.Context, token string) error

	// RevokeAll invalidates every session belonging to the user.
	RevokeAll(ctx context.Context, userID string) error

	// List returns the user's active sessions. Stateless managers return
	// ErrNotSupported.
	List(ctx context.Context, userID string) ([]*adapter.Session, error)
}

// Fresh reports whether the session was established within maxAge. Used
// by endpoints that demand a recently authenticated user; it is a pure
// comparison, not a separate session state.
func Fresh(s *adapter.Session, maxAge time.Duration) bool {
	if s == nil || maxAge <= 0 {
		return false
	}
	return time.Since(s.CreatedAt) < maxAge
}
