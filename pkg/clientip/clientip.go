// Package clientip resolves the originating client IP of an HTTP
// request behind reverse proxies. Recorded on session rows so users can
// recognize their own devices in session lists.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxy headers in trust order; the first valid IP wins
var headers = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// FromRequest returns the client IP, preferring proxy headers over the
// connection's remote address. Invalid header values are skipped rather
// than trusted; the result is always a parseable IP or empty.
func FromRequest(r *http.Request) string {
	for _, h := range headers {
		value := r.Header.Get(h)
		if value == "" {
			continue
		}
		// X-Forwarded-For may list several hops; the leftmost valid one
		// is the client
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes a candidate, returning "" when it is
// not an IP address.
func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
