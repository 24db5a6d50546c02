package secrets

import "errors"

var (
	ErrNoKey             = errors.New("secrets: no encryption key provided")
	ErrKeyTooShort       = errors.New("secrets: key must be at least 32 bytes")
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")
	ErrEncryptionFailed  = errors.New("secrets: encryption failed")
	ErrDecryptionFailed  = errors.New("secrets: decryption failed")
)
