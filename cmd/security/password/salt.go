package password

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// SaltLength is the number of characters in a generated salt.
	SaltLength = 16

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSalt returns a 16-character salt drawn from crypto/rand.
// Each random byte is reduced modulo 62 into [A-Za-z0-9].
func GenerateSalt() (string, error) {
	return generateSalt(rand.Reader)
}

func generateSalt(r io.Reader) (string, error) {
	buf := make([]byte, SaltLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	for i, b := range buf {
		buf[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(buf), nil
}
