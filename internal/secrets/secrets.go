// Package secrets generates credentials from the platform's cryptographically
// secure random source. There is no fallback: if the entropy source fails the
// error propagates and provisioning aborts.
package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultLength is used when callers do not request a specific size.
const DefaultLength = 24

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// Generate produces a random secret of the given length drawn from an
// alphanumeric-plus-symbol alphabet. Selection is unbiased: each character
// is chosen via a uniform random index rather than a modulo over raw bytes.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	max := big.NewInt(int64(len(charset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}
