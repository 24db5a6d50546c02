// Package credentials adds email+password authentication as an engine
// plugin: sign-up, sign-in, and password change endpoints with bcrypt
// hashing.
//
// Password hashes live on account records with provider id
// "credential", never on the user entity. The plugin's schema
// contribution marks "password" as an input-only field so it can be
// accepted from clients without ever being returned.
package credentials

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkravets/authgate"
	"github.com/mkravets/authgate/adapter"
)

// ProviderID marks credential accounts in the account table.
const ProviderID = "credential"

var (
	ErrInvalidCredentials  = authgate.NewHTTPError(http.StatusUnauthorized, "invalid_email_or_password")
	ErrUserAlreadyExists   = authgate.NewHTTPError(http.StatusUnprocessableEntity, "user_already_exists")
	ErrPasswordTooShort    = authgate.NewHTTPError(http.StatusBadRequest, "password_too_short")
	ErrInvalidEmail        = authgate.NewHTTPError(http.StatusBadRequest, "invalid_email")
	ErrNoCredentialAccount = authgate.NewHTTPError(http.StatusBadRequest, "no_credential_account")
)

// dummyHash keeps sign-in timing flat when the email is unknown.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

type plugin struct {
	minPasswordLength   int
	bcryptCost          int
	revokeOtherSessions bool
}

// Option configures the plugin.
type Option func(*plugin)

// WithMinPasswordLength overrides the minimum password length
// (default 8).
func WithMinPasswordLength(n int) Option {
	return func(p *plugin) {
		if n > 0 {
			p.minPasswordLength = n
		}
	}
}

// WithBcryptCost overrides the bcrypt cost (default bcrypt.DefaultCost).
func WithBcryptCost(cost int) Option {
	return func(p *plugin) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.bcryptCost = cost
		}
	}
}

// WithoutSessionRevocation keeps other sessions alive after a password
// change. By default they are revoked.
func WithoutSessionRevocation() Option {
	return func(p *plugin) { p.revokeOtherSessions = false }
}

// New returns the credentials plugin.
func New(opts ...Option) authgate.Plugin {
	p := &plugin{
		minPasswordLength:   8,
		bcryptCost:          bcrypt.DefaultCost,
		revokeOtherSessions: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	return authgate.Plugin{
		ID: "credentials",
		Endpoints: []authgate.Endpoint{
			{
				Method: http.MethodPost, Path: "/sign-up/email",
				Handler: p.handleSignUp,
				Request: func() any { return &signUpRequest{} },
			},
			{
				Method: http.MethodPost, Path: "/sign-in/email",
				Handler: p.handleSignIn,
				Request: func() any { return &signInRequest{} },
			},
			{
				Method: http.MethodPost, Path: "/change-password",
				Handler: p.handleChangePassword,
				Request: func() any { return &changePasswordRequest{} },
			},
		},
		SchemaFields: []authgate.SchemaField{
			{Entity: "user", Name: "password", Type: "string", Required: true, Input: true, Returned: false},
		},
		ErrorCodes: []authgate.HTTPError{
			ErrInvalidCredentials,
			ErrUserAlreadyExists,
			ErrPasswordTooShort,
			ErrInvalidEmail,
			ErrNoCredentialAccount,
		},
	}
}

type signUpRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`

	// Data carries plugin-declared user fields; the schema registry
	// decides which of them are accepted.
	Data map[string]any `json:"data"`
}

func (p *plugin) handleSignUp(ctx *authgate.Ctx) (authgate.Response, error) {
	req := ctx.Payload().(*signUpRequest)

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < p.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	input := map[string]any{"password": req.Password}
	for k, v := range req.Data {
		input[k] = v
	}
	extra, err := ctx.Engine().ApplyInput("user", input)
	if err != nil {
		return nil, err
	}
	// The hash lives on the account row, never the user
	delete(extra, "password")

	store := ctx.Engine().Adapter()
	_, err = store.FindOne(ctx.Context(), adapter.ModelUser, adapter.Where{adapter.Eq("email", email)})
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, adapter.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &adapter.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	record := user.ToMap()
	for k, v := range extra {
		record[k] = v
	}
	created, err := store.Create(ctx.Context(), adapter.ModelUser, record)
	if err != nil {
		return nil, err
	}

	account := &adapter.Account{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		ProviderID: ProviderID,
		AccountID:  user.ID,
		Password:   string(hash),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := store.Create(ctx.Context(), adapter.ModelAccount, account.ToMap()); err != nil {
		_ = store.Delete(ctx.Context(), adapter.ModelUser, adapter.Where{adapter.Eq("id", user.ID)})
		return nil, err
	}

	auth, err := ctx.EstablishSession(user.ID)
	if err != nil {
		return nil, err
	}
	return authgate.JSON(http.StatusOK, map[string]any{
		"user":    ctx.Engine().ApplyOutput("user", created),
		"session": auth.Session,
	}), nil
}

type signInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (p *plugin) handleSignIn(ctx *authgate.Ctx) (authgate.Response, error) {
	req := ctx.Payload().(*signInRequest)

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	store := ctx.Engine().Adapter()
	userRec, err := store.FindOne(ctx.Context(), adapter.ModelUser, adapter.Where{adapter.Eq("email", email)})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user := adapter.UserFromMap(userRec)

	account, err := p.credentialAccount(ctx, user.ID)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	auth, err := ctx.EstablishSession(user.ID)
	if err != nil {
		return nil, err
	}
	return authgate.JSON(http.StatusOK, auth), nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

func (p *plugin) handleChangePassword(ctx *authgate.Ctx) (authgate.Response, error) {
	auth, err := ctx.Auth()
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, authgate.ErrUnauthorized
	}
	// Long-lived sessions cannot rotate the password; the user has to
	// have signed in recently.
	if err := ctx.RequireFresh(); err != nil {
		return nil, err
	}

	req := ctx.Payload().(*changePasswordRequest)
	if len(req.NewPassword) < p.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	account, err := p.credentialAccount(ctx, auth.User.ID)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, ErrNoCredentialAccount
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.CurrentPassword)) != nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), p.bcryptCost)
	if err != nil {
		return nil, err
	}

	store := ctx.Engine().Adapter()
	_, err = store.Update(ctx.Context(), adapter.ModelAccount,
		adapter.Where{adapter.Eq("id", account.ID)},
		map[string]any{"password": string(hash), "updatedAt": time.Now()})
	if err != nil {
		return nil, err
	}

	// A changed password invalidates every other session; the current
	// client gets a fresh one.
	if p.revokeOtherSessions {
		if err := ctx.Engine().Sessions().RevokeAll(ctx.Context(), auth.User.ID); err != nil {
			return nil, err
		}
		if _, err := ctx.EstablishSession(auth.User.ID); err != nil {
			return nil, err
		}
	}

	return authgate.JSON(http.StatusOK, map[string]bool{"success": true}), nil
}

func (p *plugin) credentialAccount(ctx *authgate.Ctx, userID string) (*adapter.Account, error) {
	rec, err := ctx.Engine().Adapter().FindOne(ctx.Context(), adapter.ModelAccount, adapter.Where{
		adapter.Eq("userId", userID),
		adapter.Eq("providerId", ProviderID),
	})
	if err != nil {
		return nil, err
	}
	return adapter.AccountFromMap(rec), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
