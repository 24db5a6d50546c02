package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubConfig holds configuration for the GitHub provider.
type GitHubConfig struct {
	ClientID     string   `env:"GITHUB_CLIENT_ID,required"`
	ClientSecret string   `env:"GITHUB_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GITHUB_REDIRECT_URL,required"`
	Scopes       []string `env:"GITHUB_SCOPES" envSeparator:"," envDefault:"user:email"`
}

type githubProvider struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewGitHub creates the GitHub provider. GitHub does not support PKCE, so
// the verifier is ignored; CSRF protection rests on the state parameter.
func NewGitHub(cfg GitHubConfig) Provider {
	return &githubProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *githubProvider) ID() string {
	return "github"
}

func (p *githubProvider) AuthorizationURL(state, _ string) (string, error) {
	return p.conf.AuthCodeURL(state), nil
}

func (p *githubProvider) Exchange(ctx context.Context, code, _ string) (*Tokens, error) {
	tok, err := p.conf.Exchange(withClient(ctx, p.httpClient), code)
	if err != nil {
		return nil, ErrInvalidCode
	}
	return tokensFromOAuth2(tok), nil
}

func (p *githubProvider) UserInfo(ctx context.Context, tokens *Tokens) (*Profile, error) {
	user, err := p.fetchUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch github user: %w", err)
	}

	// The /user email field omits verification status; /user/emails is
	// authoritative
	emails, err := p.fetchEmails(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch github emails: %w", err)
	}

	var email string
	var verified bool
	for _, e := range emails {
		if e.Primary && e.Verified {
			email, verified = e.Email, true
			break
		}
	}
	if email == "" {
		for _, e := range emails {
			if e.Verified {
				email, verified = e.Email, true
				break
			}
		}
	}
	if email == "" && len(emails) > 0 {
		email = emails[0].Email
	}

	return &Profile{
		ID:            strconv.FormatInt(user.ID, 10),
		Email:         email,
		EmailVerified: verified,
		Name:          user.Name,
		Image:         user.AvatarURL,
	}, nil
}

func (p *githubProvider) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	src := p.conf.TokenSource(withClient(ctx, p.httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh github token: %w", err)
	}
	return tokensFromOAuth2(tok), nil
}

func (p *githubProvider) fetchUser(ctx context.Context, accessToken string) (*ghUser, error) {
	var user ghUser
	if err := p.getJSON(ctx, "https://api.github.com/user", accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *githubProvider) fetchEmails(ctx context.Context, accessToken string) ([]ghEmail, error) {
	var emails []ghEmail
	if err := p.getJSON(ctx, "https://api.github.com/user/emails", accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (p *githubProvider) getJSON(ctx context.Context, url, accessToken string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

type ghUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type ghEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// withClient routes oauth2's token-endpoint calls through the
// provider's timeout-bounded client; without it the library falls back
// to http.DefaultClient, which has no timeout.
func withClient(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c)
}

func tokensFromOAuth2(tok *oauth2.Token) *Tokens {
	t := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		t.AccessTokenExpiresAt = &expiry
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	return t
}

var _ Provider = (*githubProvider)(nil)
