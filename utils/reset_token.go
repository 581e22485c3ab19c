package utils

import (
	"crypto/rand"
	"encoding/hex"
)

const resetTokenBytes = 32

// GenerateResetToken returns 32 random bytes, hex encoded.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
