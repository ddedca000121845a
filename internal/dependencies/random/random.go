package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Random produces identifiers that can be mocked for testing
type Random interface {
	// ID returns prefix followed by n random bytes in unpadded base64url
	ID(prefix string, n int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// ID returns a random identifier with the given prefix
func (r *CryptoRandom) ID(prefix string, n int) string {
	if n <= 0 {
		return prefix
	}
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
