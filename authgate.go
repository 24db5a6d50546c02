package authgate

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/oauth"
	"github.com/mkravets/authgate/pkg/config"
	"github.com/mkravets/authgate/pkg/cookie"
	"github.com/mkravets/authgate/pkg/jwt"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/origin"
	"github.com/mkravets/authgate/pkg/secrets"
	"github.com/mkravets/authgate/session"
)

// Config configures the engine. Env-taggable fields can be loaded with
// config.Load; handles (adapter, providers, logger) are wired in code.
type Config struct {
	// Secrets sign and encrypt everything the engine hands to clients.
	// The first secret is primary; the rest remain valid for
	// verification so keys can rotate without logging everyone out.
	// Each must be at least 32 bytes.
	Secrets []string `env:"AUTHGATE_SECRETS" envSeparator:","`

	// BaseURL is the application's own origin, always trusted.
	BaseURL string `env:"AUTHGATE_BASE_URL"`

	// BasePath is the mount point for all engine endpoints.
	BasePath string `env:"AUTHGATE_BASE_PATH" envDefault:"/api/auth"`

	// TrustedOrigins lists additional redirect targets: exact origins
	// or wildcards like "*.example.com".
	TrustedOrigins []string `env:"AUTHGATE_TRUSTED_ORIGINS" envSeparator:","`

	// Stateless switches session storage from adapter-backed rows to
	// self-contained signed tokens.
	Stateless bool `env:"AUTHGATE_STATELESS" envDefault:"false"`

	// Session holds lifetime and cookie-name settings.
	Session session.Config

	// TrustedOriginFunc supplies extra trusted origins per request.
	TrustedOriginFunc origin.DynamicFunc

	// Adapter is the persistence backend. Required.
	Adapter adapter.Adapter

	// Providers are the OAuth2 identity providers to register.
	Providers []oauth.Provider

	// Denylist enables revocation in stateless mode. Ignored otherwise.
	Denylist session.Denylist

	// TrustUnverifiedEmail permits linking provider accounts by email
	// even when the provider did not verify it.
	TrustUnverifiedEmail bool

	// CookieOptions override the default cookie attribute policy.
	CookieOptions []cookie.Option

	// Logger receives engine diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
}

// LoadConfig reads the env-taggable Config fields, including the nested
// session settings, from the environment (and a .env file when present).
// Handles like Adapter and Providers still have to be wired in code
// before calling New.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	if err := config.Load(&cfg.Session); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine is the composed authentication handler. Built once by New; all
// registries are immutable afterwards.
type Engine struct {
	cfg    Config
	log    *slog.Logger
	store  adapter.Adapter
	router *chi.Mux

	sessions session.Manager
	flow     *oauth.Flow
	cookies  *cookie.Manager
	origins  *origin.Checker

	endpoints  map[string]Endpoint
	before     []Hook
	after      []AfterHook
	schema     map[string]map[string]SchemaField
	errorCodes map[string]HTTPError
}

// New builds an engine from the config and plugins. Plugin
// contributions are folded left to right; any conflict (duplicate
// plugin ID, endpoint, error code, or schema field) is a build error.
func New(cfg Config, plugins ...Plugin) (*Engine, error) {
	if cfg.Adapter == nil {
		return nil, ErrMissingAdapter
	}
	if len(cfg.Secrets) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is empty", ErrInvalidBaseURL)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api/auth"
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.Session == (session.Config{}) {
		cfg.Session = session.DefaultConfig()
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	cookieOpts := append([]cookie.Option{
		cookie.WithSecure(base.Scheme == "https"),
		cookie.WithMaxAge(int(cfg.Session.ExpiresIn.Seconds())),
	}, cfg.CookieOptions...)
	cookies, err := cookie.New(cfg.Secrets, cookieOpts...)
	if err != nil {
		return nil, err
	}

	origins, err := origin.NewChecker(cfg.BaseURL, cfg.TrustedOrigins, cfg.TrustedOriginFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}

	cipher, err := secrets.NewCipher(cfg.Secrets...)
	if err != nil {
		return nil, err
	}

	var sessions session.Manager
	if cfg.Stateless {
		signer, err := jwt.New([]byte(cfg.Secrets[0]))
		if err != nil {
			return nil, err
		}
		statelessOpts := []session.StatelessOption{session.WithStatelessLogger(log)}
		if cfg.Denylist != nil {
			statelessOpts = append(statelessOpts, session.WithDenylist(cfg.Denylist))
		}
		sessions = session.NewStatelessManager(cfg.Adapter, signer, cipher, cfg.Session, statelessOpts...)
	} else {
		sessions = session.NewManager(cfg.Adapter, cfg.Session, session.WithLogger(log))
	}

	flowOpts := []oauth.FlowOption{oauth.WithLogger(log)}
	if cfg.TrustUnverifiedEmail {
		flowOpts = append(flowOpts, oauth.WithUnverifiedEmailLinking())
	}
	flow, err := oauth.NewFlow(cfg.Adapter, cipher, cfg.Secrets[0], cfg.Providers, flowOpts...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		log:        log,
		store:      cfg.Adapter,
		router:     chi.NewRouter(),
		sessions:   sessions,
		flow:       flow,
		cookies:    cookies,
		origins:    origins,
		endpoints:  make(map[string]Endpoint),
		schema:     make(map[string]map[string]SchemaField),
		errorCodes: make(map[string]HTTPError),
	}

	e.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		e.renderError(w, r, ErrNotFound)
	})
	e.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		e.renderError(w, r, ErrMethodNotAllowed)
	})

	seen := make(map[string]bool)
	for _, p := range append([]Plugin{corePlugin(e)}, plugins...) {
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.ID)
		}
		seen[p.ID] = true
		if err := e.register(p); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.ID, err)
		}
	}

	// Stable sort keeps registration order among equal priorities.
	sort.SliceStable(e.before, func(i, j int) bool { return e.before[i].Priority < e.before[j].Priority })
	sort.SliceStable(e.after, func(i, j int) bool { return e.after[i].Priority < e.after[j].Priority })

	return e, nil
}

// register folds one plugin's contributions into the engine registries.
func (e *Engine) register(p Plugin) error {
	for _, ep := range p.Endpoints {
		key := ep.Method + " " + ep.Path
		if _, exists := e.endpoints[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateEndpoint, key)
		}
		e.endpoints[key] = ep
		e.router.MethodFunc(ep.Method, e.cfg.BasePath+ep.Path, e.handle(ep))
	}

	e.before = append(e.before, p.BeforeHooks...)
	e.after = append(e.after, p.AfterHooks...)

	for _, f := range p.SchemaFields {
		fields, ok := e.schema[f.Entity]
		if !ok {
			fields = make(map[string]SchemaField)
			e.schema[f.Entity] = fields
		}
		if _, exists := fields[f.Name]; exists {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateSchemaField, f.Entity, f.Name)
		}
		fields[f.Name] = f
	}

	for _, code := range p.ErrorCodes {
		if _, exists := e.errorCodes[code.Key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateErrorCode, code.Key)
		}
		e.errorCodes[code.Key] = code
	}

	return nil
}

// ServeHTTP implements http.Handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

// Adapter returns the persistence backend, for plugins that manage
// their own records.
func (e *Engine) Adapter() adapter.Adapter {
	return e.store
}

// Sessions returns the session manager.
func (e *Engine) Sessions() session.Manager {
	return e.sessions
}

// Endpoint looks up a registered endpoint by method and plugin-relative
// path.
func (e *Engine) Endpoint(method, path string) (Endpoint, bool) {
	ep, ok := e.endpoints[method+" "+path]
	return ep, ok
}

// Schema returns the plugin-contributed fields for an entity, or nil
// when no plugin extended it.
func (e *Engine) Schema(entity string) map[string]SchemaField {
	return e.schema[entity]
}

func (e *Engine) sessionCookieName() string {
	return e.cfg.Session.CookieName
}

func (e *Engine) setSessionCookie(w http.ResponseWriter, token string) {
	e.cookies.SetSigned(w, e.sessionCookieName(), token)
}

func (e *Engine) clearSessionCookie(w http.ResponseWriter) {
	e.cookies.Delete(w, e.sessionCookieName())
}
