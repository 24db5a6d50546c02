package credentials_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkravets/authgate"
	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/adapter/memory"
	"github.com/mkravets/authgate/plugins/credentials"
	"github.com/mkravets/authgate/session"
)

func newEngine(t *testing.T, opts ...credentials.Option) *authgate.Engine {
	t.Helper()

	engine, err := authgate.New(authgate.Config{
		Secrets: []string{"credentials-test-secret-0123456789"},
		BaseURL: "http://localhost:3000",
		Adapter: memory.New(),
	}, credentials.New(opts...))
	require.NoError(t, err)
	return engine
}

func do(t *testing.T, engine *authgate.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, r)
	return w
}

func signUp(t *testing.T, engine *authgate.Engine, email, password string) *http.Cookie {
	t.Helper()

	w := do(t, engine, "/api/auth/sign-up/email",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return findSessionCookie(t, w)
}

func findSessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == "authgate.session_token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func errorKey(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, credentials.WithBcryptCost(bcrypt.MinCost))

	w := do(t, engine, "/api/auth/sign-up/email",
		`{"email":"New.User@Example.com ","password":"hunter2hunter2","name":"New User"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var auth session.Auth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	require.NotNil(t, auth.User)
	assert.Equal(t, "new.user@example.com", auth.User.Email, "email is normalized")
	assert.Equal(t, "New User", auth.User.Name)
	findSessionCookie(t, w)

	t.Run("duplicate email", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-up/email",
			`{"email":"new.user@example.com","password":"hunter2hunter2"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "user_already_exists", errorKey(t, w))
	})

	t.Run("short password", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-up/email",
			`{"email":"short@example.com","password":"abc"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password_too_short", errorKey(t, w))
	})

	t.Run("invalid email", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-up/email",
			`{"email":"not-an-email","password":"hunter2hunter2"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_email", errorKey(t, w))
	})
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, credentials.WithBcryptCost(bcrypt.MinCost))
	signUp(t, engine, "user@example.com", "correct-horse-battery")

	t.Run("valid credentials", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-in/email",
			`{"email":"user@example.com","password":"correct-horse-battery"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var auth session.Auth
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
		assert.Equal(t, "user@example.com", auth.User.Email)
		findSessionCookie(t, w)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-in/email",
			`{"email":"user@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_email_or_password", errorKey(t, w))
	})

	t.Run("unknown email uses the same error", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-in/email",
			`{"email":"nobody@example.com","password":"whatever-pass"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_email_or_password", errorKey(t, w))
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, credentials.WithBcryptCost(bcrypt.MinCost))
	cookie := signUp(t, engine, "user@example.com", "old-password-123")

	t.Run("requires authentication", func(t *testing.T) {
		w := do(t, engine, "/api/auth/change-password",
			`{"currentPassword":"old-password-123","newPassword":"new-password-456"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		w := do(t, engine, "/api/auth/change-password",
			`{"currentPassword":"nope","newPassword":"new-password-456"}`, cookie)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_email_or_password", errorKey(t, w))
	})

	w := do(t, engine, "/api/auth/change-password",
		`{"currentPassword":"old-password-123","newPassword":"new-password-456"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Other sessions are revoked; the caller got a fresh cookie
	fresh := findSessionCookie(t, w)

	signin := do(t, engine, "/api/auth/sign-in/email",
		`{"email":"user@example.com","password":"old-password-123"}`)
	assert.Equal(t, http.StatusUnauthorized, signin.Code)

	signin = do(t, engine, "/api/auth/sign-in/email",
		`{"email":"user@example.com","password":"new-password-456"}`)
	assert.Equal(t, http.StatusOK, signin.Code)

	check := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
	check.AddCookie(fresh)
	got := httptest.NewRecorder()
	engine.ServeHTTP(got, check)
	assert.NotEqual(t, "null\n", got.Body.String(), "caller keeps a valid session")
}

func TestChangePasswordWithoutRevocation(t *testing.T) {
	t.Parallel()

	engine := newEngine(t,
		credentials.WithBcryptCost(bcrypt.MinCost),
		credentials.WithoutSessionRevocation())
	cookie := signUp(t, engine, "user@example.com", "old-password-123")

	other := do(t, engine, "/api/auth/sign-in/email",
		`{"email":"user@example.com","password":"old-password-123"}`)
	require.Equal(t, http.StatusOK, other.Code)
	otherCookie := findSessionCookie(t, other)

	w := do(t, engine, "/api/auth/change-password",
		`{"currentPassword":"old-password-123","newPassword":"new-password-456"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	check := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
	check.AddCookie(otherCookie)
	got := httptest.NewRecorder()
	engine.ServeHTTP(got, check)
	assert.NotEqual(t, "null\n", got.Body.String(), "other sessions survive")
}

func TestMinPasswordLengthOption(t *testing.T) {
	t.Parallel()

	engine := newEngine(t,
		credentials.WithBcryptCost(bcrypt.MinCost),
		credentials.WithMinPasswordLength(16))

	w := do(t, engine, "/api/auth/sign-up/email",
		`{"email":"user@example.com","password":"only12chars!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password_too_short", errorKey(t, w))
}

func TestSchemaContribution(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)

	fields := engine.Schema("user")
	require.Contains(t, fields, "password")
	assert.True(t, fields["password"].Input)
	assert.False(t, fields["password"].Returned, "password is never returned")
}

func TestSignUpWithSchemaData(t *testing.T) {
	t.Parallel()

	profile := authgate.Plugin{
		ID: "profile",
		SchemaFields: []authgate.SchemaField{
			{Entity: "user", Name: "nickname", Type: "string", Required: true, Input: true, Returned: true},
			{Entity: "user", Name: "role", Type: "string", Input: false, Returned: true},
			{Entity: "user", Name: "secretNote", Type: "string", Input: true, Returned: false},
		},
	}
	engine, err := authgate.New(authgate.Config{
		Secrets: []string{"credentials-test-secret-0123456789"},
		BaseURL: "http://localhost:3000",
		Adapter: memory.New(),
	}, credentials.New(credentials.WithBcryptCost(bcrypt.MinCost)), profile)
	require.NoError(t, err)

	w := do(t, engine, "/api/auth/sign-up/email",
		`{"email":"ziggy@example.com","password":"hunter2hunter2",
		  "data":{"nickname":"ziggy","secretNote":"likes jazz","role":"admin"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ziggy", body.User["nickname"])
	assert.NotContains(t, body.User, "secretNote", "write-only fields never leave the server")
	assert.NotContains(t, body.User, "password")

	// The stored record keeps the write-only field but not the
	// server-managed one the client tried to smuggle in.
	rec, err := engine.Adapter().FindOne(context.Background(), adapter.ModelUser,
		adapter.Where{adapter.Eq("email", "ziggy@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "likes jazz", rec["secretNote"])
	assert.NotContains(t, rec, "role")

	t.Run("missing required field", func(t *testing.T) {
		w := do(t, engine, "/api/auth/sign-up/email",
			`{"email":"other@example.com","password":"hunter2hunter2","data":{"secretNote":"x"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", errorKey(t, w))
	})
}

func TestChangePasswordRequiresFreshSession(t *testing.T) {
	t.Parallel()

	engine, err := authgate.New(authgate.Config{
		Secrets: []string{"credentials-test-secret-0123456789"},
		BaseURL: "http://localhost:3000",
		Adapter: memory.New(),
		Session: session.Config{
			CookieName: "authgate.session_token",
			ExpiresIn:  time.Hour,
			UpdateAge:  time.Hour,
			FreshAge:   time.Nanosecond,
		},
	}, credentials.New(credentials.WithBcryptCost(bcrypt.MinCost)))
	require.NoError(t, err)

	cookie := signUp(t, engine, "user@example.com", "old-password-123")
	time.Sleep(time.Millisecond)

	w := do(t, engine, "/api/auth/change-password",
		`{"currentPassword":"old-password-123","newPassword":"new-password-456"}`, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "session_not_fresh", errorKey(t, w))

	// The password was not rotated
	signin := do(t, engine, "/api/auth/sign-in/email",
		`{"email":"user@example.com","password":"old-password-123"}`)
	assert.Equal(t, http.StatusOK, signin.Code)
}
