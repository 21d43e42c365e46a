package bind

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewSecret returns a URL-safe random string of exactly length characters,
// drawn from crypto/rand. Used for both the bind token and the state nonce.
func NewSecret(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}

	// Each base64 character encodes 6 bits; over-provision and trim.
	byteLen := (length*6 + 7) / 8

	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(buf)
	if len(encoded) < length {
		return "", fmt.Errorf("encoded secret too short: %d < %d", len(encoded), length)
	}

	return encoded[:length], nil
}
