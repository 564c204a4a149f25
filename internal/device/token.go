package device

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of a device token; the hex form is twice as long.
const tokenBytes = 16

// TokenLength is the length of an encoded device token.
const TokenLength = tokenBytes * 2

// GenerateToken returns 16 random bytes hex-encoded as 32 lowercase characters.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating device token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsValidToken reports whether s has the shape of a generated token.
func IsValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
