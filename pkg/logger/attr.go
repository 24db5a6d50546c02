package logger

import "log/slog"

// Attribute helpers keep log field names consistent across packages.

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

func SessionID(id string) slog.Attr {
	return slog.String("session_id", id)
}

func Provider(id string) slog.Attr {
	return slog.String("provider", id)
}

func Endpoint(method, path string) slog.Attr {
	return slog.Group("endpoint", slog.String("method", method), slog.String("path", path))
}
