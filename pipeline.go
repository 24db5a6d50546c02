package authgate

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/oauth"
	"github.com/mkravets/authgate/pkg/binder"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/origin"
	"github.com/mkravets/authgate/session"
)

// handle wraps an endpoint into the fixed pipeline: parse, before
// hooks, handler, after hooks, respond. A before-hook error aborts the
// handler and the after hooks; a before-hook response short-circuits
// past both.
func (e *Engine) handle(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := &Ctx{engine: e, w: w, r: r}

		// Declared request shapes parse before any hook runs
		if ep.Request != nil {
			payload := ep.Request()
			if err := ctx.Bind(payload); err != nil {
				e.respondError(ctx, err)
				return
			}
			ctx.payload = payload
		}

		for _, h := range e.before {
			if h.Matcher != nil && !h.Matcher(r) {
				continue
			}
			resp, err := h.Fn(ctx)
			if err != nil {
				e.respondError(ctx, err)
				return
			}
			if resp != nil {
				e.respond(ctx, resp)
				return
			}
		}

		resp, err := ep.Handler(ctx)
		if err != nil {
			e.respondError(ctx, err)
			return
		}
		if resp == nil {
			e.respondError(ctx, ErrNilResponse)
			return
		}

		for _, h := range e.after {
			if h.Matcher != nil && !h.Matcher(r) {
				continue
			}
			// After hooks only decorate; their failure must not eat a
			// response the handler already committed to.
			if err := h.Fn(ctx, resp); err != nil {
				e.log.ErrorContext(r.Context(), "after hook failed",
					logger.Component("pipeline"),
					logger.Endpoint(ep.Method, ep.Path),
					logger.Error(err),
				)
			}
		}

		e.respond(ctx, resp)
	}
}

// respond renders a response, vetting redirect targets first. An
// untrusted redirect target is a forbidden response, not a redirect.
func (e *Engine) respond(ctx *Ctx, resp Response) {
	if target, ok := redirectTarget(resp); ok {
		if !e.origins.IsTrusted(target, origin.Options{AllowRelativePaths: true, Request: ctx.r}) {
			e.log.WarnContext(ctx.Context(), "untrusted redirect target rejected",
				logger.Component("pipeline"),
			)
			e.renderError(ctx.w, ctx.r, ErrForbidden)
			return
		}
	}

	if err := resp.Render(ctx.w, ctx.r); err != nil {
		e.log.ErrorContext(ctx.Context(), "response render failed",
			logger.Component("pipeline"),
			logger.Error(err),
		)
	}
}

// respondError maps an error to a wire response. Known errors carry
// their own status and code; everything else is a generic 500 with the
// detail logged server-side only.
func (e *Engine) respondError(ctx *Ctx, err error) {
	var flowErr *oauth.FlowError
	if errors.As(err, &flowErr) {
		e.respondFlowError(ctx, flowErr)
		return
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		e.renderError(ctx.w, ctx.r, httpErr)
		return
	}

	switch {
	case isBindError(err), errors.Is(err, ErrMissingRequiredField):
		e.renderErrorDetail(ctx.w, ErrBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrSessionRevoked):
		e.renderError(ctx.w, ctx.r, ErrUnauthorized)
	case errors.Is(err, session.ErrNotSupported):
		e.renderError(ctx.w, ctx.r, ErrNotImplemented)
	case errors.Is(err, adapter.ErrNotFound):
		e.renderError(ctx.w, ctx.r, ErrNotFound)
	case errors.Is(err, oauth.ErrUnknownProvider):
		e.renderError(ctx.w, ctx.r, ErrNotFound)
	default:
		e.log.ErrorContext(ctx.Context(), "request failed",
			logger.Component("pipeline"),
			logger.Error(err),
		)
		e.renderError(ctx.w, ctx.r, ErrInternalServerError)
	}
}

// respondFlowError redirects OAuth flow failures to the flow's vetted
// error URL with an error code in the query, so browser flows never see
// raw errors. Flows without a usable error URL degrade to JSON.
func (e *Engine) respondFlowError(ctx *Ctx, flowErr *oauth.FlowError) {
	e.log.WarnContext(ctx.Context(), "oauth flow failed",
		logger.Component("oauth"),
		logger.Error(flowErr),
	)

	if flowErr.RedirectTo != "" &&
		e.origins.IsTrusted(flowErr.RedirectTo, origin.Options{AllowRelativePaths: true, Request: ctx.r}) {
		http.Redirect(ctx.w, ctx.r, appendErrorParam(flowErr.RedirectTo, flowErr.Code), http.StatusFound)
		return
	}

	status := http.StatusBadRequest
	if flowErr.Code == oauth.CodeStateMismatch {
		status = http.StatusForbidden
	}
	e.renderErrorDetail(ctx.w, HTTPError{Code: status, Key: flowErr.Code}, "")
}

func (e *Engine) renderError(w http.ResponseWriter, _ *http.Request, httpErr HTTPError) {
	e.renderErrorDetail(w, httpErr, "")
}

func (e *Engine) renderErrorDetail(w http.ResponseWriter, httpErr HTTPError, message string) {
	body := map[string]string{"error": httpErr.Key}
	if message != "" {
		body["message"] = message
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Code)
	_ = json.NewEncoder(w).Encode(body)
}

func isBindError(err error) bool {
	for _, sentinel := range []error{
		binder.ErrInvalidJSON,
		binder.ErrInvalidForm,
		binder.ErrInvalidQuery,
		binder.ErrInvalidPath,
		binder.ErrUnsupportedMediaType,
		binder.ErrMissingContentType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// appendErrorParam adds error=code to a URL, preserving any existing
// query string.
func appendErrorParam(target, code string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}
