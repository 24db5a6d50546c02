// Package logger builds configured slog.Logger instances and provides
// typed attribute helpers for consistent structured log fields across the
// engine.
package logger
