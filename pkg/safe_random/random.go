package safe_random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateRandomBytes returns n bytes from the system CSPRNG.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateRandomHexString returns a hex string of n random bytes (2n characters).
func GenerateRandomHexString(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateSecret returns a fresh node account passphrase.
func GenerateSecret() (string, error) {
	return GenerateRandomHexString(32)
}
