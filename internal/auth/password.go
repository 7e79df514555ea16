package auth

import (
	"errors"
	"fmt"
	"unicode"

	"storefront/internal/model"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ValidatePassword enforces the minimum password strength: at least
// eight characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return model.ErrWeakPassword
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return model.ErrWeakPassword
	}

	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("error comparing password: %w", err)
}
