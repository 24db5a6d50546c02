package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/pkg/secrets"
)

const (
	keyA = "0123456789abcdef0123456789abcdef"
	keyB = "fedcba9876543210fedcba9876543210"
)

func TestNewCipher(t *testing.T) {
	t.Parallel()

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()

		_, err := secrets.NewCipher()
		assert.ErrorIs(t, err, secrets.ErrNoKey)
	})

	t.Run("short key", func(t *testing.T) {
		t.Parallel()

		_, err := secrets.NewCipher("too-short")
		assert.ErrorIs(t, err, secrets.ErrKeyTooShort)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	cipher, err := secrets.NewCipher(keyA)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		encrypted, err := cipher.EncryptString("sensitive value")
		require.NoError(t, err)
		assert.NotEqual(t, "sensitive value", encrypted)

		decrypted, err := cipher.DecryptString(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "sensitive value", decrypted)
	})

	t.Run("nonce makes ciphertexts differ", func(t *testing.T) {
		t.Parallel()

		a, err := cipher.EncryptString("same input")
		require.NoError(t, err)
		b, err := cipher.EncryptString("same input")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		t.Parallel()

		encrypted, err := cipher.Encrypt([]byte("value"))
		require.NoError(t, err)

		encrypted[len(encrypted)-1] ^= 0x01
		_, err = cipher.Decrypt(encrypted)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		other, err := secrets.NewCipher(keyB)
		require.NoError(t, err)

		encrypted, err := cipher.EncryptString("value")
		require.NoError(t, err)

		_, err = other.DecryptString(encrypted)
		assert.Error(t, err)
	})
}

func TestKeyRotation(t *testing.T) {
	t.Parallel()

	old, err := secrets.NewCipher(keyA)
	require.NoError(t, err)

	encrypted, err := old.EncryptString("survives rotation")
	require.NoError(t, err)

	// New primary key, old key still accepted for decryption
	rotated, err := secrets.NewCipher(keyB, keyA)
	require.NoError(t, err)

	decrypted, err := rotated.DecryptString(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "survives rotation", decrypted)
}
