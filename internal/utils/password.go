package utils

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// ErrPasswordLength is returned for passwords shorter than model.MinPasswordLen or
// longer than bcrypt's 72 byte limit.
var ErrPasswordLength = errors.New("password length out of range")

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if utf8.RuneCountInString(plain) < model.MinPasswordLen || len(plain) > 72 {
		return "", ErrPasswordLength
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
