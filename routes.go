package authgate

import (
	"net/http"

	"github.com/mkravets/authgate/oauth"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/origin"
)

// corePlugin contributes the engine's built-in endpoints through the
// same contract external plugins use.
func corePlugin(e *Engine) Plugin {
	return Plugin{
		ID: "core",
		Endpoints: []Endpoint{
			{
				Method: http.MethodPost, Path: "/sign-in/oauth/{provider}",
				Handler: e.handleOAuthSignIn,
				Request: func() any { return &oauthSignInRequest{} },
			},
			{
				Method: http.MethodGet, Path: "/callback/{provider}",
				Handler: e.handleOAuthCallback,
				Request: func() any { return &oauthCallbackRequest{} },
			},
			{Method: http.MethodPost, Path: "/sign-out", Handler: e.handleSignOut},
			{Method: http.MethodGet, Path: "/get-session", Handler: e.handleGetSession},
			{Method: http.MethodGet, Path: "/list-sessions", Handler: e.handleListSessions},
			{Method: http.MethodPost, Path: "/revoke-sessions", Handler: e.handleRevokeSessions},
		},
	}
}

type oauthSignInRequest struct {
	Provider           string `path:"provider" json:"-"`
	CallbackURL        string `json:"callbackURL"`
	ErrorCallbackURL   string `json:"errorCallbackURL"`
	NewUserCallbackURL string `json:"newUserCallbackURL"`
	DisableRedirect    bool   `json:"disableRedirect"`
}

func (e *Engine) handleOAuthSignIn(ctx *Ctx) (Response, error) {
	req := *ctx.Payload().(*oauthSignInRequest)
	if req.CallbackURL == "" {
		req.CallbackURL = "/"
	}

	// Every URL the flow may later redirect to is vetted now, before
	// any of them is persisted into the flow state.
	for _, target := range []string{req.CallbackURL, req.ErrorCallbackURL, req.NewUserCallbackURL} {
		if target == "" {
			continue
		}
		if !e.origins.IsTrusted(target, origin.Options{AllowRelativePaths: true, Request: ctx.Request()}) {
			return nil, ErrForbidden
		}
	}

	var link *oauth.LinkHint
	if auth, err := ctx.Auth(); err == nil && auth != nil {
		link = &oauth.LinkHint{UserID: auth.User.ID, Email: auth.User.Email}
	}

	result, err := e.flow.Start(ctx.Context(), oauth.StartRequest{
		ProviderID:         req.Provider,
		CallbackURL:        req.CallbackURL,
		ErrorURL:           req.ErrorCallbackURL,
		NewUserCallbackURL: req.NewUserCallbackURL,
		Link:               link,
	})
	if err != nil {
		return nil, err
	}

	if req.DisableRedirect {
		return JSON(http.StatusOK, result), nil
	}
	// Provider authorization URLs are external; render the redirect
	// directly instead of routing it through the trusted-origin guard.
	return externalRedirect(result.URL), nil
}

type oauthCallbackRequest struct {
	Provider string `path:"provider"`
	Code     string `query:"code"`
	State    string `query:"state"`
}

func (e *Engine) handleOAuthCallback(ctx *Ctx) (Response, error) {
	req := ctx.Payload().(*oauthCallbackRequest)

	result, err := e.flow.Callback(ctx.Context(), req.Provider, req.State, req.Code)
	if err != nil {
		return nil, err
	}

	if _, err := ctx.EstablishSession(result.User.ID); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx.Context(), "signed in via oauth",
		logger.Component("core"),
		logger.Provider(req.Provider),
		logger.UserID(result.User.ID),
	)

	return Redirect(result.RedirectTo), nil
}

func (e *Engine) handleSignOut(ctx *Ctx) (Response, error) {
	token, err := e.cookies.GetSigned(ctx.Request(), e.sessionCookieName())
	if err == nil && token != "" {
		if err := e.sessions.Revoke(ctx.Context(), token); err != nil {
			e.log.WarnContext(ctx.Context(), "sign-out revocation failed",
				logger.Component("core"),
				logger.Error(err),
			)
		}
	}
	ctx.ClearSession()
	return JSON(http.StatusOK, map[string]bool{"success": true}), nil
}

func (e *Engine) handleGetSession(ctx *Ctx) (Response, error) {
	auth, err := ctx.Auth()
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return JSON(http.StatusOK, nil), nil
	}
	return JSON(http.StatusOK, auth), nil
}

func (e *Engine) handleListSessions(ctx *Ctx) (Response, error) {
	auth, err := ctx.Auth()
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, ErrUnauthorized
	}

	list, err := e.sessions.List(ctx.Context(), auth.User.ID)
	if err != nil {
		return nil, err
	}
	return JSON(http.StatusOK, list), nil
}

func (e *Engine) handleRevokeSessions(ctx *Ctx) (Response, error) {
	auth, err := ctx.Auth()
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, ErrUnauthorized
	}

	if err := e.sessions.RevokeAll(ctx.Context(), auth.User.ID); err != nil {
		return nil, err
	}
	ctx.ClearSession()

	e.log.InfoContext(ctx.Context(), "all sessions revoked",
		logger.Component("core"),
		logger.UserID(auth.User.ID),
	)

	return JSON(http.StatusOK, map[string]bool{"success": true}), nil
}
