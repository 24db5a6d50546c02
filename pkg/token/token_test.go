package token_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/pkg/token"
)

type payload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

const secret = "test-secret-key-for-signing-tokens"

func TestGenerateParse(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		tok, err := token.Generate(payload{ID: "u1", Email: "a@b.com"}, secret)
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		got, err := token.Parse[payload](tok, secret)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "a@b.com", got.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		tok, err := token.Generate(payload{ID: "u1"}, secret)
		require.NoError(t, err)

		_, err = token.Parse[payload](tok, "another-secret-entirely-different")
		assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		tok, err := token.Generate(payload{ID: "u1"}, secret)
		require.NoError(t, err)

		// Flip one bit in the payload part
		raw := []byte(tok)
		raw[0] ^= 0x01

		_, err = token.Parse[payload](string(raw), secret)
		assert.Error(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		for _, tok := range []string{"", "no-separator", "a.b.c.d", "!!!.???"} {
			_, err := token.Parse[payload](tok, secret)
			assert.Error(t, err, "token %q", tok)
		}
	})
}

func TestNewRandom(t *testing.T) {
	t.Parallel()

	a, err := token.NewRandom(32)
	require.NoError(t, err)
	b, err := token.NewRandom(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
	assert.False(t, strings.ContainsAny(a, "+/"))
}
