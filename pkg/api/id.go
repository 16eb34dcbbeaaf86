package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// CallbackIDPrefix starts every correlation id. It keeps ids valid
	// script identifiers so the far end can call them directly.
	CallbackIDPrefix = "xsr_"
)

var callbackIDPattern = regexp.MustCompile(`^xsr_([a-zA-Z0-9]{24}|[a-f0-9]{32})$`)

// NewCallbackID generates a correlation id with the "xsr_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewCallbackID() string {
	return CallbackIDPrefix + randomAlphanumeric(idLength)
}

// UUIDCallbackID generates a correlation id from a random UUID, rendered
// as 32 lowercase hex characters after the "xsr_" prefix.
func UUIDCallbackID() string {
	return CallbackIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateCallbackID checks whether id was produced by one of the
// generators in this package.
func ValidateCallbackID(id string) bool {
	return callbackIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
