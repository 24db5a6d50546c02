package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Cipher encrypts and decrypts values with AES-256-GCM. The first key is
// used for encryption; all keys are tried on decryption to support
// rotation.
type Cipher struct {
	keys []string
}

// NewCipher creates a Cipher from one or more secret keys. Each key must
// be at least 32 bytes; only the first 32 bytes are used as AES-256 key
// material.
func NewCipher(keys ...string) (*Cipher, error) {
	if len(keys) == 0 {
		return nil, ErrNoKey
	}
	for _, k := range keys {
		if len(k) < 32 {
			return nil, ErrKeyTooShort
		}
	}
	return &Cipher{keys: keys}, nil
}

// EncryptString encrypts plaintext and returns a base64url-encoded
// self-contained ciphertext (nonce prepended).
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	ciphertext, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// DecryptString decrypts a base64url-encoded ciphertext back to a string.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := c.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Encrypt seals data under the primary key.
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	gcm, err := newGCM(c.keys[0])
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	// Prepend nonce to ciphertext for self-contained decryption
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens a ciphertext, trying every configured key so rotated
// secrets keep decrypting values issued under previous keys.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	for _, key := range c.keys {
		gcm, err := newGCM(key)
		if err != nil {
			continue
		}

		if len(ciphertext) < gcm.NonceSize() {
			return nil, ErrInvalidCiphertext
		}

		nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
		plaintext, err := gcm.Open(nil, nonce, sealed, nil)
		if err == nil {
			return plaintext, nil
		}
	}

	return nil, ErrDecryptionFailed
}

func newGCM(key string) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(key[:32]))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
