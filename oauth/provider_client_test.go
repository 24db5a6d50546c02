package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingTransport struct {
	calls atomic.Int32
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","refresh_token":"rt-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProviderClientHasTimeout(t *testing.T) {
	t.Parallel()

	gh := NewGitHub(GitHubConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*githubProvider)
	assert.Equal(t, 10*time.Second, gh.httpClient.Timeout)

	gp := NewGoogle(GoogleConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*googleProvider)
	assert.Equal(t, 10*time.Second, gp.httpClient.Timeout)
}

// Token-endpoint calls must go through the provider's own client; the
// oauth2 library otherwise falls back to http.DefaultClient, which has
// no timeout.
func TestGitHubExchangeUsesProviderClient(t *testing.T) {
	t.Parallel()

	srv := newTokenServer(t)
	transport := &countingTransport{}

	p := NewGitHub(GitHubConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*githubProvider)
	p.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}
	p.httpClient = &http.Client{Transport: transport, Timeout: 10 * time.Second}

	tokens, err := p.Exchange(context.Background(), "code-1", "")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Positive(t, transport.calls.Load())
}

func TestGitHubRefreshUsesProviderClient(t *testing.T) {
	t.Parallel()

	srv := newTokenServer(t)
	transport := &countingTransport{}

	p := NewGitHub(GitHubConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*githubProvider)
	p.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}
	p.httpClient = &http.Client{Transport: transport, Timeout: 10 * time.Second}

	tokens, err := p.RefreshToken(context.Background(), "rt-0")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Positive(t, transport.calls.Load())
}

func TestGoogleExchangeUsesProviderClient(t *testing.T) {
	t.Parallel()

	srv := newTokenServer(t)
	transport := &countingTransport{}

	p := NewGoogle(GoogleConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*googleProvider)
	p.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}
	p.httpClient = &http.Client{Transport: transport, Timeout: 10 * time.Second}

	tokens, err := p.Exchange(context.Background(), "code-1", oauth2.GenerateVerifier())
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Positive(t, transport.calls.Load())
}

func TestGoogleRefreshUsesProviderClient(t *testing.T) {
	t.Parallel()

	srv := newTokenServer(t)
	transport := &countingTransport{}

	p := NewGoogle(GoogleConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://localhost/cb"}).(*googleProvider)
	p.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}
	p.httpClient = &http.Client{Transport: transport, Timeout: 10 * time.Second}

	tokens, err := p.RefreshToken(context.Background(), "rt-0")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Positive(t, transport.calls.Load())
}
