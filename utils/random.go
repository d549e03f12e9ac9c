package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns a random lowercase alphanumeric identifier, suitable for
// record primary keys.
func RandomID(length int) string {
	b := make([]byte, length)

	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}

	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}

	return string(b)
}

// GenerateCode returns n random bytes as an uppercase hex string, used for
// payment reference labels.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}
