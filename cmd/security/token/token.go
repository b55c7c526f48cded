package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// KeySize is the length of every derived key.
const KeySize = sha256.Size

// DeriveKey returns HMAC-SHA256(secret, purpose).
// Surrounding whitespace in secret is ignored.
func DeriveKey(secret, purpose string) ([]byte, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return nil, ErrSecretMissing
	}
	m := hmac.New(sha256.New, []byte(s))
	_, _ = m.Write([]byte(purpose))
	return m.Sum(nil), nil
}

// CheckSecret enforces a minimum byte length on secret.
func CheckSecret(secret string, minBytes int) error {
	s := strings.TrimSpace(secret)
	if s == "" {
		return ErrSecretMissing
	}
	if minBytes > 0 && len(s) < minBytes {
		return ErrSecretTooShort
	}
	return nil
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// NewOpaque returns nBytes of randomness, base64url without padding.
func NewOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Equal compares two non-empty strings in constant time.
func Equal(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
