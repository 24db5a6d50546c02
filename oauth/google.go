package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_REDIRECT_URL,required"`
	Scopes       []string `env:"GOOGLE_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
}

type googleProvider struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewGoogle creates the Google provider. Google supports PKCE; the S256
// challenge is derived from the flow's verifier.
func NewGoogle(cfg GoogleConfig) Provider {
	return &googleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *googleProvider) ID() string {
	return "google"
}

func (p *googleProvider) AuthorizationURL(state, verifier string) (string, error) {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	), nil
}

func (p *googleProvider) Exchange(ctx context.Context, code, verifier string) (*Tokens, error) {
	tok, err := p.conf.Exchange(withClient(ctx, p.httpClient), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, ErrInvalidCode
	}
	return tokensFromOAuth2(tok), nil
}

func (p *googleProvider) UserInfo(ctx context.Context, tokens *Tokens) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}

	return &Profile{
		ID:            info.ID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
		Image:         info.Picture,
	}, nil
}

func (p *googleProvider) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	src := p.conf.TokenSource(withClient(ctx, p.httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh google token: %w", err)
	}
	return tokensFromOAuth2(tok), nil
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

var _ Provider = (*googleProvider)(nil)
