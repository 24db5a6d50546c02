package binder_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/pkg/binder"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	type request struct {
		Email    string `json:"email"`
		Remember bool   `json:"remember"`
	}

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","remember":true}`))
		r.Header.Set("Content-Type", "application/json")

		var req request
		require.NoError(t, binder.JSON()(r, &req))
		assert.Equal(t, "a@b.com", req.Email)
		assert.True(t, req.Remember)
	})

	t.Run("charset parameter accepted", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		var req request
		assert.NoError(t, binder.JSON()(r, &req))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","nope":1}`))
		r.Header.Set("Content-Type", "application/json")

		var req request
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})

	t.Run("missing content type", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))

		var req request
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrMissingContentType)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "text/plain")

		var req request
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrUnsupportedMediaType)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/json")

		var req request
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})

	t.Run("trailing data", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}{"again":true}`))
		r.Header.Set("Content-Type", "application/json")

		var req request
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})
}

func TestForm(t *testing.T) {
	t.Parallel()

	type request struct {
		Email    string   `form:"email"`
		Remember bool     `form:"remember"`
		Tags     []string `form:"tags"`
		Skipped  string   `form:"-"`
	}

	form := url.Values{
		"email":    {"a@b.com"},
		"remember": {"on"},
		"tags":     {"go", "auth"},
		"skipped":  {"nope"},
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var req request
	require.NoError(t, binder.Form()(r, &req))
	assert.Equal(t, "a@b.com", req.Email)
	assert.True(t, req.Remember)
	assert.Equal(t, []string{"go", "auth"}, req.Tags)
	assert.Empty(t, req.Skipped)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type request struct {
		Code  string `query:"code"`
		State string `query:"state"`
		Page  int    `query:"page"`
		Limit *int   `query:"limit"`
	}

	r := httptest.NewRequest(http.MethodGet, "/cb?code=abc&state=xyz&page=2&limit=50", nil)

	var req request
	require.NoError(t, binder.Query()(r, &req))
	assert.Equal(t, "abc", req.Code)
	assert.Equal(t, "xyz", req.State)
	assert.Equal(t, 2, req.Page)
	require.NotNil(t, req.Limit)
	assert.Equal(t, 50, *req.Limit)

	t.Run("invalid int", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/cb?page=NaN", nil)
		var req request
		assert.ErrorIs(t, binder.Query()(r, &req), binder.ErrInvalidQuery)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type request struct {
		Provider string `path:"provider"`
	}

	extractor := func(_ *http.Request, name string) string {
		if name == "provider" {
			return "github"
		}
		return ""
	}

	r := httptest.NewRequest(http.MethodGet, "/callback/github", nil)

	var req request
	require.NoError(t, binder.Path(extractor)(r, &req))
	assert.Equal(t, "github", req.Provider)

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()

		var req request
		assert.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrInvalidPath)
	})
}
