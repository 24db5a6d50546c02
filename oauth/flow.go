package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/secrets"
	"github.com/mkravets/authgate/pkg/token"
)

// Flow drives the OAuth2 authorization-code state machine across the
// registered providers.
type Flow struct {
	providers  map[string]Provider
	store      adapter.Adapter
	cipher     *secrets.Cipher
	secret     string
	stateTTL   time.Duration
	trustEmail bool
	log        *slog.Logger
}

// FlowOption configures a Flow during construction.
type FlowOption func(*Flow)

// WithStateTTL overrides the flow state lifetime (default 10 minutes).
func WithStateTTL(ttl time.Duration) FlowOption {
	return func(f *Flow) {
		if ttl > 0 {
			f.stateTTL = ttl
		}
	}
}

// WithUnverifiedEmailLinking allows linking by email even when the
// provider did not verify it. Off by default: an unverified email
// collision is rejected, not guessed.
func WithUnverifiedEmailLinking() FlowOption {
	return func(f *Flow) { f.trustEmail = true }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) FlowOption {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFlow creates a Flow. Duplicate provider IDs are a construction
// error, consistent with the engine's build-time conflict policy.
func NewFlow(store adapter.Adapter, cipher *secrets.Cipher, secret string, providers []Provider, opts ...FlowOption) (*Flow, error) {
	f := &Flow{
		providers: make(map[string]Provider, len(providers)),
		store:     store,
		cipher:    cipher,
		secret:    secret,
		stateTTL:  10 * time.Minute,
		log:       logger.Discard(),
	}

	for _, p := range providers {
		if _, exists := f.providers[p.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID())
		}
		f.providers[p.ID()] = p
	}

	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Provider returns the registered provider by id.
func (f *Flow) Provider(id string) (Provider, bool) {
	p, ok := f.providers[id]
	return p, ok
}

// StartRequest is the Init input. All URLs must already have passed the
// trusted-origin guard; the flow stores them verbatim.
type StartRequest struct {
	ProviderID         string
	CallbackURL        string
	ErrorURL           string
	NewUserCallbackURL string
	Link               *LinkHint
}

// StartResult carries the provider authorization URL and the opaque state
// handed to the provider.
type StartResult struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// Start generates the CSRF value and PKCE verifier, persists the
// single-use flow state, and builds the provider authorization URL.
func (f *Flow) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	provider, ok := f.providers[req.ProviderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.ProviderID)
	}

	csrf, err := token.NewRandom(32)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	state, err := f.issueState(ctx, flowState{
		CSRFState:          csrf,
		CodeVerifier:       verifier,
		CallbackURL:        req.CallbackURL,
		ErrorURL:           req.ErrorURL,
		NewUserCallbackURL: req.NewUserCallbackURL,
		ExpiresAt:          time.Now().Add(f.stateTTL),
		Link:               req.Link,
	})
	if err != nil {
		return nil, err
	}

	authURL, err := provider.AuthorizationURL(state, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization url: %w", err)
	}

	f.log.InfoContext(ctx, "oauth flow started",
		logger.Component("oauth"),
		logger.Provider(req.ProviderID),
	)

	return &StartResult{URL: authURL, State: state}, nil
}

// CallbackResult is a successful flow outcome.
type CallbackResult struct {
	User       *adapter.User
	Account    *adapter.Account
	RedirectTo string
	NewUser    bool
}

// Callback consumes the returned state, exchanges the code, resolves the
// identity, and links or creates the local user/account. All failures
// are *FlowError values pointing at the flow's vetted error URL.
func (f *Flow) Callback(ctx context.Context, providerID, state, code string) (*CallbackResult, error) {
	provider, ok := f.providers[providerID]
	if !ok {
		return nil, flowErr(CodeStateMismatch, "", ErrUnknownProvider)
	}

	st, err := f.consumeState(ctx, state)
	if err != nil {
		// No verified state means no trusted error URL either
		return nil, flowErr(CodeStateMismatch, "", err)
	}

	if time.Now().After(st.ExpiresAt) {
		return nil, flowErr(CodeFlowExpired, st.ErrorURL, nil)
	}

	tokens, err := provider.Exchange(ctx, code, st.CodeVerifier)
	if err != nil {
		return nil, flowErr(CodeExchangeFailed, st.ErrorURL, err)
	}

	profile, err := provider.UserInfo(ctx, tokens)
	if err != nil || profile == nil || profile.ID == "" {
		return nil, flowErr(CodeUserInfoFailed, st.ErrorURL, err)
	}

	result, err := f.resolveIdentity(ctx, provider.ID(), profile, tokens, st.Link)
	if err != nil {
		var fe *FlowError
		if errors.As(err, &fe) {
			fe.RedirectTo = st.ErrorURL
			return nil, fe
		}
		return nil, flowErr(CodeSignUpUnavailable, st.ErrorURL, err)
	}

	result.RedirectTo = st.CallbackURL
	if result.NewUser && st.NewUserCallbackURL != "" {
		result.RedirectTo = st.NewUserCallbackURL
	}

	f.log.InfoContext(ctx, "oauth flow completed",
		logger.Component("oauth"),
		logger.Provider(providerID),
		logger.UserID(result.User.ID),
		slog.Bool("new_user", result.NewUser),
	)

	return result, nil
}

// resolveIdentity maps a verified provider profile onto a local user, in
// strict precedence: explicit link hint, existing provider account,
// verified-email match, fresh sign-up. Every input combination lands in
// exactly one branch; ambiguous ones fail rather than guess.
func (f *Flow) resolveIdentity(ctx context.Context, providerID string, profile *Profile, tokens *Tokens, link *LinkHint) (*CallbackResult, error) {
	existing, err := f.findAccount(ctx, providerID, profile.ID)
	if err != nil && !errors.Is(err, adapter.ErrNotFound) {
		return nil, err
	}

	if link != nil {
		if existing != nil && existing.UserID != link.UserID {
			return nil, flowErr(CodeAlreadyLinked, "", nil)
		}
		if existing != nil {
			// Idempotent re-link: refresh tokens and carry on
			if err := f.updateAccountTokens(ctx, existing, tokens); err != nil {
				return nil, err
			}
			user, err := f.findUser(ctx, adapter.Where{adapter.Eq("id", link.UserID)})
			if err != nil {
				return nil, err
			}
			return &CallbackResult{User: user, Account: existing}, nil
		}

		user, err := f.findUser(ctx, adapter.Where{adapter.Eq("id", link.UserID)})
		if err != nil {
			return nil, err
		}
		account, err := f.createAccount(ctx, user.ID, providerID, profile, tokens)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{User: user, Account: account}, nil
	}

	if existing != nil {
		if err := f.updateAccountTokens(ctx, existing, tokens); err != nil {
			return nil, err
		}
		user, err := f.findUser(ctx, adapter.Where{adapter.Eq("id", existing.UserID)})
		if err != nil {
			return nil, err
		}
		return &CallbackResult{User: user, Account: existing}, nil
	}

	if profile.Email != "" {
		user, err := f.findUser(ctx, adapter.Where{adapter.Eq("email", profile.Email)})
		if err == nil {
			// Email collision: linking an unverified provider email to an
			// existing local user would allow account takeover
			if !profile.EmailVerified && !f.trustEmail {
				return nil, flowErr(CodeEmailNotVerified, "", nil)
			}
			account, err := f.createAccount(ctx, user.ID, providerID, profile, tokens)
			if err != nil {
				return nil, err
			}
			return &CallbackResult{User: user, Account: account}, nil
		}
		if !errors.Is(err, adapter.ErrNotFound) {
			return nil, err
		}
	}

	if profile.Email == "" {
		return nil, flowErr(CodeUserInfoFailed, "", ErrNoEmail)
	}

	now := time.Now()
	user := &adapter.User{
		ID:            uuid.NewString(),
		Email:         profile.Email,
		EmailVerified: profile.EmailVerified,
		Name:          profile.Name,
		Image:         profile.Image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.store.Create(ctx, adapter.ModelUser, user.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	account, err := f.createAccount(ctx, user.ID, providerID, profile, tokens)
	if err != nil {
		// Roll the user back so a failed linkage does not strand a
		// user row without any account
		_ = f.store.Delete(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("id", user.ID)})
		return nil, err
	}

	return &CallbackResult{User: user, Account: account, NewUser: true}, nil
}

func (f *Flow) findAccount(ctx context.Context, providerID, accountID string) (*adapter.Account, error) {
	rec, err := f.store.FindOne(ctx, adapter.ModelAccount, adapter.Where{
		adapter.Eq("providerId", providerID),
		adapter.Eq("accountId", accountID),
	})
	if err != nil {
		return nil, err
	}
	return adapter.AccountFromMap(rec), nil
}

func (f *Flow) findUser(ctx context.Context, where adapter.Where) (*adapter.User, error) {
	rec, err := f.store.FindOne(ctx, adapter.ModelUser, where)
	if err != nil {
		return nil, err
	}
	return adapter.UserFromMap(rec), nil
}

func (f *Flow) createAccount(ctx context.Context, userID, providerID string, profile *Profile, tokens *Tokens) (*adapter.Account, error) {
	now := time.Now()
	account := &adapter.Account{
		ID:                    uuid.NewString(),
		UserID:                userID,
		ProviderID:            providerID,
		AccountID:             profile.ID,
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
		Scope:                 tokens.Scope,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if _, err := f.store.Create(ctx, adapter.ModelAccount, account.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (f *Flow) updateAccountTokens(ctx context.Context, account *adapter.Account, tokens *Tokens) error {
	patch := map[string]any{
		"accessToken": tokens.AccessToken,
		"updatedAt":   time.Now(),
	}
	if tokens.RefreshToken != "" {
		patch["refreshToken"] = tokens.RefreshToken
	}
	if tokens.AccessTokenExpiresAt != nil {
		patch["accessTokenExpiresAt"] = *tokens.AccessTokenExpiresAt
	}
	if tokens.Scope != "" {
		patch["scope"] = tokens.Scope
	}

	_, err := f.store.Update(ctx, adapter.ModelAccount,
		adapter.Where{adapter.Eq("id", account.ID)}, patch)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}
	return nil
}
