// Package vault provides symmetric encryption for credentials at rest.
// OAuth access and refresh tokens are never written to the database in
// plaintext; the vault seals them with AES-256-GCM under a key taken
// from configuration at startup.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize = 32

	// Parameters for deriving a key from a passphrase. Iteration count
	// matches Gitea's token hashing for consistency.
	kdfIterations = 10000
)

// kdfSalt is a fixed application salt for passphrase-derived keys. The
// passphrase itself must be high-entropy; the salt only domain-separates
// the derivation.
var kdfSalt = []byte("gitbridge/vault/v1")

// Vault encrypts and decrypts secrets with a single symmetric key.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from the configured key string. The key may be a
// base64-encoded 32-byte value, or any other non-empty string which is
// then run through PBKDF2. An absent key is a fatal configuration error.
func New(key string) (*Vault, error) {
	if key == "" {
		return nil, errors.New(
			"vault: ENCRYPTION_KEY must be set; generate one with: openssl rand -base64 32",
		)
	}

	block, err := aes.NewCipher(keyBytes(key))
	if err != nil {
		return nil, fmt.Errorf("vault: invalid key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// keyBytes resolves the configured key string to raw key material.
func keyBytes(key string) []byte {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(key); err == nil && len(raw) == keySize {
			return raw
		}
	}
	return pbkdf2.Key([]byte(key), kdfSalt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext and returns a URL-safe base64 ciphertext.
// The empty string passes through unchanged so optional fields round-trip
// without the caller branching on presence.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. The empty string passes
// through unchanged. Any tampered or foreign ciphertext, or one sealed
// under a different key, fails with errdefs.ErrDecryptionFailed -- the
// stored credential is unrecoverable and the caller must re-authenticate.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", errdefs.ErrDecryptionFailed)
	}
	if len(sealed) < v.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", errdefs.ErrDecryptionFailed)
	}

	nonce, data := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("%w: key mismatch or corrupted data", errdefs.ErrDecryptionFailed)
	}

	return string(plaintext), nil
}
