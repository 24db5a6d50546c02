package origin

import (
	"net/http"
	"net/url"
	"strings"
)

// DynamicFunc supplies additional trusted origins computed from the
// inbound request. It is evaluated fresh on every call, never cached.
type DynamicFunc func(r *http.Request) []string

// Checker validates URLs against the application's base origin and a
// configured list of trusted origins.
type Checker struct {
	baseOrigin string
	static     []string
	dynamic    DynamicFunc
}

// Options adjust a single IsTrusted call.
type Options struct {
	// AllowRelativePaths permits site-local paths like "/dashboard".
	// Protocol-relative, backslash-obfuscated, and pseudo-protocol values
	// are rejected regardless.
	AllowRelativePaths bool

	// Request, when set, is passed to the dynamic origin function.
	Request *http.Request
}

// NewChecker creates a Checker. baseURL is the application's own origin
// and is always trusted.
func NewChecker(baseURL string, trusted []string, dynamic DynamicFunc) (*Checker, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	return &Checker{
		baseOrigin: originOf(base),
		static:     trusted,
		dynamic:    dynamic,
	}, nil
}

// IsTrusted reports whether target is a safe redirect destination.
func (c *Checker) IsTrusted(target string, opts Options) bool {
	if target == "" {
		return false
	}

	if isRelative(target) {
		return opts.AllowRelativePaths && safeRelativePath(target)
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	org := originOf(u)
	if org == c.baseOrigin {
		return true
	}

	entries := c.static
	if c.dynamic != nil && opts.Request != nil {
		// Dynamic lists are computed per request so multi-tenant hosts can
		// trust request-dependent origins.
		entries = append(append([]string{}, entries...), c.dynamic(opts.Request)...)
	}

	for _, entry := range entries {
		if matchOrigin(u, entry) {
			return true
		}
	}

	return false
}

// isRelative reports whether the value has no scheme or authority
// component. Anything starting with "//" is protocol-relative and treated
// as absolute (and rejected later for having no scheme of its own).
func isRelative(target string) bool {
	if strings.HasPrefix(target, "//") {
		return false
	}
	if strings.Contains(target, "://") {
		return false
	}
	// Pseudo-protocols like javascript: or data: carry a colon before any
	// slash; those are not relative paths.
	if i := strings.IndexAny(target, ":/?#"); i >= 0 && target[i] == ':' {
		return false
	}
	return true
}

// safeRelativePath rejects path values that browsers or proxies could
// reinterpret as absolute or traversing URLs.
func safeRelativePath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	if strings.Contains(p, "\\") {
		return false
	}

	lower := strings.ToLower(p)
	for _, bad := range []string{"%2f", "%5c", "%2e%2e", "/..", "../"} {
		if strings.Contains(lower, bad) {
			return false
		}
	}

	return true
}

// matchOrigin checks a parsed URL against one trusted-origin entry.
// Wildcards match the origin's host by subdomain, never the raw string,
// so "evil-trusted.com" can never satisfy "*.trusted.com".
func matchOrigin(u *url.URL, entry string) bool {
	if entry == "" {
		return false
	}

	scheme := ""
	host := entry
	if s, rest, ok := strings.Cut(entry, "://"); ok {
		scheme = s
		host = rest
	}

	if sub, ok := strings.CutPrefix(host, "*."); ok {
		if scheme != "" && u.Scheme != scheme {
			return false
		}
		h := u.Hostname()
		return h == sub || strings.HasSuffix(h, "."+sub)
	}

	if scheme == "" {
		// Bare host entry: match host (with optional port) on any http(s)
		// scheme.
		return u.Host == host || u.Hostname() == host
	}

	return originOf(u) == strings.TrimSuffix(entry, "/")
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
