package util

import (
	"crypto/rand"
	"encoding/base64"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// RandomURLSafe generates a URL-safe random token from nbytes of entropy.
// Used for OAuth state tokens and connection ids.
func RandomURLSafe(nbytes int64) (string, error) {
	bytes, err := CryptoRandomBytes(nbytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
