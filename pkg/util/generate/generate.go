package generate

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const passwordLength = 32

func RandomFixedLengthStringOfSize(n int) (string, error) {
	b, err := generateRandomBytes(n)
	return base64.URLEncoding.EncodeToString(b)[:n], err
}

// Password returns a random password made only of characters that need no escaping in
// a connection string.
func Password() (string, error) {
	s, err := RandomFixedLengthStringOfSize(passwordLength)
	if err != nil {
		return "", err
	}
	return strings.NewReplacer("-", "a", "_", "b").Replace(s), nil
}

func generateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}

	return b, nil
}
