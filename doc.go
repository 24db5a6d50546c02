// Package authgate is an embeddable authentication engine for Go web
// applications.
//
// The engine composes a request pipeline, a session lifecycle (database
// or stateless mode), an OAuth2 client flow, and a plugin system into a
// single http.Handler mounted under a base path:
//
//	store := memory.New()
//	engine, err := authgate.New(authgate.Config{
//		Secrets:        []string{secret},
//		BaseURL:        "https://example.com",
//		TrustedOrigins: []string{"*.example.com"},
//		Adapter:        store,
//		Providers:      []oauth.Provider{oauth.NewGitHub(ghCfg)},
//	}, credentials.New())
//	if err != nil {
//		log.Fatal(err)
//	}
//	mux.Handle("/api/auth/", engine)
//
// Persistence goes through the adapter.Adapter interface; identity
// providers implement oauth.Provider. Plugins contribute endpoints,
// hooks, schema fields, and error codes; conflicting contributions are
// rejected when the engine is built, never at request time.
package authgate
