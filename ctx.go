package authgate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkravets/authgate/pkg/binder"
	"github.com/mkravets/authgate/pkg/clientip"
	"github.com/mkravets/authgate/pkg/cookie"
	"github.com/mkravets/authgate/session"
)

// Ctx carries all request-scoped state through the pipeline. Handlers
// and hooks receive it explicitly; nothing is stashed in globals.
type Ctx struct {
	engine *Engine
	w      http.ResponseWriter
	r      *http.Request

	payload any

	auth      *session.Auth
	authErr   error
	authDone  bool
	noRefresh bool
}

// Context returns the request context.
func (c *Ctx) Context() context.Context {
	return c.r.Context()
}

// Request returns the underlying request.
func (c *Ctx) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the underlying response writer. Prefer
// returning a Response; reach for this only in hooks adding headers.
func (c *Ctx) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Engine returns the engine this request runs in.
func (c *Ctx) Engine() *Engine {
	return c.engine
}

// Param returns a route parameter, e.g. "provider" for a route
// containing "{provider}".
func (c *Ctx) Param(name string) string {
	return chi.URLParam(c.r, name)
}

// Payload returns the request value bound by the pipeline, for
// endpoints that declare a Request shape. Nil otherwise.
func (c *Ctx) Payload() any {
	return c.payload
}

// Bind fills v from the request: path parameters and query string
// always, plus the body when one is present (JSON or form, by content
// type).
func (c *Ctx) Bind(v any) error {
	binds := []binder.Bind{
		binder.Path(chi.URLParam),
		binder.Query(),
	}
	if c.r.ContentLength != 0 {
		mediaType := c.r.Header.Get("Content-Type")
		if strings.HasPrefix(mediaType, "application/x-www-form-urlencoded") {
			binds = append(binds, binder.Form())
		} else {
			binds = append(binds, binder.JSON())
		}
	}

	for _, bind := range binds {
		if err := bind(c.r, v); err != nil {
			return err
		}
	}
	return nil
}

// Auth resolves the current session from the session cookie. The result
// is cached for the rest of the request. Anonymous requests (no cookie,
// bad signature, expired or revoked session) yield (nil, nil); only
// infrastructure failures surface as errors. A qualifying read slides
// the session expiry unless DisableRefresh was called.
func (c *Ctx) Auth() (*session.Auth, error) {
	if c.authDone {
		return c.auth, c.authErr
	}
	c.authDone = true

	token, err := c.engine.cookies.GetSigned(c.r, c.engine.sessionCookieName())
	if err != nil {
		return nil, nil
	}

	auth, rotated, err := c.engine.sessions.Validate(c.Context(), token, !c.noRefresh)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) ||
			errors.Is(err, session.ErrSessionExpired) ||
			errors.Is(err, session.ErrSessionRevoked) {
			c.engine.clearSessionCookie(c.w)
			return nil, nil
		}
		c.authErr = err
		return nil, err
	}

	if rotated != "" {
		c.engine.setSessionCookie(c.w, rotated)
	}

	c.auth = auth
	return auth, nil
}

// RequireFresh ensures the current session was established within the
// configured freshness window (session.Config.FreshAge). Endpoints
// performing destructive account changes call this before proceeding.
func (c *Ctx) RequireFresh() error {
	auth, err := c.Auth()
	if err != nil {
		return err
	}
	if auth == nil {
		return ErrUnauthorized
	}
	if !session.Fresh(auth.Session, c.engine.cfg.Session.FreshAge) {
		return ErrSessionNotFresh
	}
	return nil
}

// SetAuth overrides the resolved session for the rest of the request.
// Used by endpoints that establish a session mid-request.
func (c *Ctx) SetAuth(auth *session.Auth) {
	c.auth = auth
	c.authErr = nil
	c.authDone = true
}

// DisableRefresh suppresses sliding session refresh for this request
// only.
func (c *Ctx) DisableRefresh() {
	c.noRefresh = true
}

// EstablishSession creates a session for the user, sets the session
// cookie, and caches the auth pair on the context.
func (c *Ctx) EstablishSession(userID string) (*session.Auth, error) {
	auth, token, err := c.engine.sessions.Create(c.Context(), userID, c.Meta())
	if err != nil {
		return nil, err
	}
	c.engine.setSessionCookie(c.w, token)
	c.SetAuth(auth)
	return auth, nil
}

// ClearSession removes the session cookie and drops the cached auth.
func (c *Ctx) ClearSession() {
	c.engine.clearSessionCookie(c.w)
	c.SetAuth(nil)
}

// SetCookie sets a cookie under the engine's attribute policy. Options
// override single attributes, e.g. cookie.WithHTTPOnly(false) for a
// client-readable cookie.
func (c *Ctx) SetCookie(name, value string, opts ...cookie.Option) {
	c.engine.cookies.Set(c.w, name, value, opts...)
}

// DeleteCookie expires a cookie.
func (c *Ctx) DeleteCookie(name string) {
	c.engine.cookies.Delete(c.w, name)
}

// Meta returns the request metadata recorded on session creation.
func (c *Ctx) Meta() session.Meta {
	return session.Meta{
		IPAddress: clientip.FromRequest(c.r),
		UserAgent: c.r.UserAgent(),
	}
}
