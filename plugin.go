package authgate

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandlerFunc handles one endpoint. All request-scoped state flows
// through Ctx; there are no ambient lookups.
type HandlerFunc func(ctx *Ctx) (Response, error)

// Endpoint is one route contributed by a plugin. Path is relative to
// the engine's base path and may carry chi-style parameters, e.g.
// "/callback/{provider}".
//
// Request optionally declares the endpoint's request shape as a factory
// for a fresh pointer. When set, the pipeline binds it before any hook
// runs and hands it to the handler via Ctx.Payload; a malformed request
// then fails with 400 regardless of what hooks would have done.
type Endpoint struct {
	Method  string
	Path    string
	Handler HandlerFunc
	Request func() any
}

// Matcher selects the requests a hook applies to. A nil Matcher matches
// every request.
type Matcher func(r *http.Request) bool

// BeforeHookFunc runs before the endpoint handler. Returning a non-nil
// Response short-circuits the pipeline; returning an error aborts both
// the handler and the after hooks.
type BeforeHookFunc func(ctx *Ctx) (Response, error)

// AfterHookFunc runs after a successful handler. It may add headers and
// cookies but cannot replace the response; a failure is logged and the
// response proceeds.
type AfterHookFunc func(ctx *Ctx, resp Response) error

// Hook is a before hook with an execution priority. Lower priorities
// run first; registration order breaks ties.
type Hook struct {
	Matcher  Matcher
	Priority int
	Fn       BeforeHookFunc
}

// AfterHook mirrors Hook for the after stage.
type AfterHook struct {
	Matcher  Matcher
	Priority int
	Fn       AfterHookFunc
}

// SchemaField extends a core entity with one plugin-owned field.
// Input-only fields are accepted from clients but never returned;
// non-input fields are server-managed.
type SchemaField struct {
	Entity   string // adapter model name, e.g. "user"
	Name     string
	Type     string // "string", "number", "boolean", "date"
	Required bool
	Input    bool
	Returned bool
}

// Plugin is a unit of contribution folded into the engine at build
// time. Conflicts between plugins (same endpoint, same error code, same
// schema field) fail New rather than shadowing each other silently.
type Plugin struct {
	ID           string
	Endpoints    []Endpoint
	BeforeHooks  []Hook
	AfterHooks   []AfterHook
	SchemaFields []SchemaField
	ErrorCodes   []HTTPError
}

// MatchPath returns a Matcher selecting requests whose resolved route
// pattern ends with one of the given endpoint paths.
func MatchPath(paths ...string) Matcher {
	return func(r *http.Request) bool {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return false
		}
		pattern := rctx.RoutePattern()
		for _, p := range paths {
			if strings.HasSuffix(pattern, p) {
				return true
			}
		}
		return false
	}
}
