package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// NonceLength is the number of characters in a challenge nonce
	NonceLength = 16

	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateNonce returns a random uppercase alphanumeric nonce
func GenerateNonce() (string, error) {
	size := big.NewInt(int64(len(nonceAlphabet)))
	buf := make([]byte, NonceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate nonce: %w", err)
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
