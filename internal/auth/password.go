package auth

import (
	"fmt"
	"unicode"

	"github.com/varhold/varhold/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// HashSecret creates a bcrypt hash of a password or API key secret.
// Each call salts independently, so hashing the same input twice yields
// different hashes.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret compares a secret with its stored hash in constant time.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ValidatePassword enforces the registration password policy: at least
// 8 characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.New(apperr.KindValidation, "password must be at least 8 characters long")
	}

	var hasLetter, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasLetter {
		return apperr.New(apperr.KindValidation, "password must contain at least one letter")
	}
	if !hasDigit {
		return apperr.New(apperr.KindValidation, "password must contain at least one number")
	}
	return nil
}
