package oauth

import (
	"context"
	"time"
)

// Tokens are the provider tokens returned by a code exchange or refresh.
type Tokens struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  *time.Time
	RefreshTokenExpiresAt *time.Time
	Scope                 string
}

// Profile is the normalized user info every provider adapter resolves to.
type Profile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Image         string
}

// Provider is the identity-provider collaborator contract. One
// implementation exists per external provider; all provider specifics
// (endpoints, user-info shapes, PKCE support) stay behind it.
type Provider interface {
	// ID returns the provider identifier, e.g. "github".
	ID() string

	// AuthorizationURL builds the provider authorization URL carrying the
	// opaque state and, for providers that support PKCE, the S256
	// challenge derived from verifier.
	AuthorizationURL(state, verifier string) (string, error)

	// Exchange trades the authorization code (and PKCE verifier where
	// applicable) for provider tokens.
	Exchange(ctx context.Context, code, verifier string) (*Tokens, error)

	// UserInfo fetches the provider's user profile.
	UserInfo(ctx context.Context, tokens *Tokens) (*Profile, error)

	// RefreshToken obtains fresh tokens from a refresh token.
	RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error)
}
