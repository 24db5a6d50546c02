// Package secrets provides symmetric AES-256-GCM encryption for small
// payloads such as stateless session snapshots and OAuth2 flow state.
//
// Ciphertexts are self-contained (nonce prepended) and base64url encoded.
// Decryption tries every configured key so that secrets can be rotated
// without invalidating values encrypted under an older key.
package secrets
