package session

import "time"

// Config holds session lifecycle configuration.
type Config struct {
	// CookieName is the name of the primary session cookie.
	CookieName string `env:"AUTHGATE_SESSION_COOKIE" envDefault:"authgate.session_token"`

	// ExpiresIn is the session lifetime from creation or last refresh.
	ExpiresIn time.Duration `env:"AUTHGATE_SESSION_EXPIRES_IN" envDefault:"168h"`

	// UpdateAge is the minimum age before a qualifying read slides the
	// expiry forward. Zero disables sliding refresh.
	UpdateAge time.Duration `env:"AUTHGATE_SESSION_UPDATE_AGE" envDefault:"24h"`

	// FreshAge is the window within which a session counts as freshly
	// established for destructive actions.
	FreshAge time.Duration `env:"AUTHGATE_SESSION_FRESH_AGE" envDefault:"24h"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName: "authgate.session_token",
		ExpiresIn:  7 * 24 * time.Hour,
		UpdateAge:  24 * time.Hour,
		FreshAge:   24 * time.Hour,
	}
}
