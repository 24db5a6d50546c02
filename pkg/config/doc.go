// Package config loads environment variables into tagged configuration
// structs.
//
// It wraps caarlos0/env with a one-time .env load via godotenv and caches
// each configuration type so repeated Load calls for the same type return
// the same values.
//
// Example:
//
//	type SessionConfig struct {
//		CookieName string        `env:"AUTH_SESSION_COOKIE" envDefault:"authgate.session_token"`
//		ExpiresIn  time.Duration `env:"AUTH_SESSION_EXPIRES_IN" envDefault:"168h"`
//	}
//
//	var cfg SessionConfig
//	if err := config.Load(&cfg); err != nil { ... }
package config
