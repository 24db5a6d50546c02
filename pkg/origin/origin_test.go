package origin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/pkg/origin"
)

func TestIsTrusted(t *testing.T) {
	t.Parallel()

	checker, err := origin.NewChecker("http://localhost:3000", []string{
		"trusted.com",
		"*.my-site.com",
		"https://*.secure-only.com",
	}, nil)
	require.NoError(t, err)

	tests := []struct {
		name          string
		target        string
		allowRelative bool
		want          bool
	}{
		{"own origin", "http://localhost:3000/dashboard", false, true},
		{"own origin with query", "http://localhost:3000/cb?next=/x", false, true},
		{"exact trusted host", "https://trusted.com/path", false, true},
		{"suffix attack on trusted host", "https://trusted.com.malicious-site.com/", false, false},
		{"embedded trusted host", "https://evil.com/trusted.com", false, false},
		{"wildcard subdomain", "https://app.my-site.com/callback", false, true},
		{"wildcard nested subdomain", "https://a.b.my-site.com/", false, true},
		{"wildcard apex", "https://my-site.com/", false, true},
		{"wildcard lookalike", "https://evil-my-site.com/", false, false},
		{"scheme-bound wildcard wrong scheme", "http://app.secure-only.com/", false, false},
		{"scheme-bound wildcard right scheme", "https://app.secure-only.com/", false, true},
		{"untrusted origin", "https://attacker.com/", false, false},
		{"relative allowed", "/dashboard?welcome=1&q=a+b", true, true},
		{"relative not allowed", "/dashboard", false, false},
		{"protocol relative", "//evil.com", true, false},
		{"backslash obfuscation", "/\\evil.com", true, false},
		{"encoded slash", "/%2f evil", true, false},
		{"encoded traversal", "/a%2e%2eb", true, false},
		{"dot traversal", "/../secrets", true, false},
		{"javascript pseudo protocol", "javascript:alert(1)", true, false},
		{"data pseudo protocol", "data:text/html,x", true, false},
		{"empty", "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := checker.IsTrusted(tt.target, origin.Options{AllowRelativePaths: tt.allowRelative})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDynamicOrigins(t *testing.T) {
	t.Parallel()

	var calls int
	checker, err := origin.NewChecker("https://example.com", nil, func(r *http.Request) []string {
		calls++
		return []string{r.Header.Get("X-Tenant-Origin")}
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Tenant-Origin", "https://tenant-a.com")

	assert.True(t, checker.IsTrusted("https://tenant-a.com/cb", origin.Options{Request: r}))
	assert.False(t, checker.IsTrusted("https://tenant-b.com/cb", origin.Options{Request: r}))

	// Evaluated fresh per call, never cached
	assert.Equal(t, 2, calls)

	// Without a request the dynamic list is not consulted
	assert.False(t, checker.IsTrusted("https://tenant-a.com/cb", origin.Options{}))
}
