package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/pkg/jwt"
)

var signingKey = []byte("jwt-signing-key-needs-enough-bytes")

func TestService(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New(signingKey)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		claims := jwt.StandardClaims{
			ID:        "tok-1",
			Subject:   "user-1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		}
		tok, err := svc.Generate(claims)
		require.NoError(t, err)
		assert.Len(t, strings.Split(tok, "."), 3)

		var parsed jwt.StandardClaims
		require.NoError(t, svc.Parse(tok, &parsed))
		assert.Equal(t, "tok-1", parsed.ID)
		assert.Equal(t, "user-1", parsed.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Generate(jwt.StandardClaims{
			Subject:   "user-1",
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		})
		require.NoError(t, err)

		var parsed jwt.StandardClaims
		err = svc.Parse(tok, &parsed)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		other, err := jwt.New([]byte("a-completely-different-signing-key"))
		require.NoError(t, err)

		tok, err := svc.Generate(jwt.StandardClaims{Subject: "user-1"})
		require.NoError(t, err)

		var parsed jwt.StandardClaims
		err = other.Parse(tok, &parsed)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})

	t.Run("tampered signature", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Generate(jwt.StandardClaims{Subject: "user-1"})
		require.NoError(t, err)

		raw := []byte(tok)
		raw[len(raw)-1] ^= 0x01

		var parsed jwt.StandardClaims
		assert.Error(t, svc.Parse(string(raw), &parsed))
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		var parsed jwt.StandardClaims
		for _, tok := range []string{"", "one", "one.two", "one.two.three.four"} {
			assert.Error(t, svc.Parse(tok, &parsed), "token %q", tok)
		}
	})
}

func TestStandardClaimsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, jwt.StandardClaims{}.Valid())
	assert.NoError(t, jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()}.Valid())
	assert.ErrorIs(t, jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()}.Valid(), jwt.ErrExpiredToken)
	assert.ErrorIs(t, jwt.StandardClaims{NotBefore: time.Now().Add(time.Hour).Unix()}.Valid(), jwt.ErrInvalidToken)
}
