package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SecretBytes is the entropy of refresh credentials and proof tokens.
const SecretBytes = 32

// GenerateSecret returns a URL-safe random secret with SecretBytes of entropy.
// The result is handed to the client once and only its hash is stored.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret returns the hex-encoded SHA-256 of a raw secret. It is the only
// form in which refresh credentials and proof tokens are persisted.
func HashSecret(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// SecretMatches compares raw against a stored hash in constant time.
func SecretMatches(raw, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(raw)), []byte(storedHash)) == 1
}
