package authgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate"
)

// profilePlugin registers one field of each flavor: a required
// client-settable one, a server-managed one, and a write-only one.
func profilePlugin() authgate.Plugin {
	return authgate.Plugin{
		ID: "profile",
		SchemaFields: []authgate.SchemaField{
			{Entity: "user", Name: "nickname", Type: "string", Required: true, Input: true, Returned: true},
			{Entity: "user", Name: "role", Type: "string", Input: false, Returned: true},
			{Entity: "user", Name: "secretNote", Type: "string", Input: true, Returned: false},
		},
	}
}

func TestApplyInput(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, profilePlugin())

	t.Run("keeps declared input fields only", func(t *testing.T) {
		t.Parallel()

		out, err := engine.ApplyInput("user", map[string]any{
			"nickname":   "ziggy",
			"secretNote": "likes jazz",
			"role":       "admin",
			"isAdmin":    true,
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"nickname":   "ziggy",
			"secretNote": "likes jazz",
		}, out, "server-managed and unregistered fields must be dropped")
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, err := engine.ApplyInput("user", map[string]any{"secretNote": "x"})
		require.ErrorIs(t, err, authgate.ErrMissingRequiredField)
		assert.Contains(t, err.Error(), "user.nickname")
	})

	t.Run("entity without schema accepts nothing", func(t *testing.T) {
		t.Parallel()

		out, err := engine.ApplyInput("verification", map[string]any{"anything": 1})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestApplyOutput(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, profilePlugin())

	t.Run("strips non-returned fields", func(t *testing.T) {
		t.Parallel()

		out := engine.ApplyOutput("user", map[string]any{
			"id":         "u1",
			"email":      "user@example.com",
			"nickname":   "ziggy",
			"role":       "admin",
			"secretNote": "likes jazz",
		})
		assert.Equal(t, map[string]any{
			"id":       "u1",
			"email":    "user@example.com",
			"nickname": "ziggy",
			"role":     "admin",
		}, out, "core and returned fields pass, write-only fields do not")
	})

	t.Run("entity without schema passes through", func(t *testing.T) {
		t.Parallel()

		record := map[string]any{"id": "v1", "value": "tok"}
		assert.Equal(t, record, engine.ApplyOutput("verification", record))
	})
}
