// Package auth hashes and verifies the administrator password.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for stored admin passwords.
const DefaultCost = 12

// MaxPasswordLength is the longest password bcrypt accepts.
const MaxPasswordLength = 72

var (
	// ErrInvalidPassword is returned when a candidate does not match the stored hash.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrNoPassword is returned when no password hash has been stored yet.
	ErrNoPassword = errors.New("no password set")
	// ErrPasswordTooLong is returned when hashing a password longer than MaxPasswordLength.
	ErrPasswordTooLong = errors.New("password too long")
)

// HashPassword hashes a plaintext password using bcrypt at DefaultCost.
func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost hashes a plaintext password using the given bcrypt cost.
// Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func HashPasswordWithCost(password string, cost int) ([]byte, error) {
	if len(password) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrPasswordTooLong, MaxPasswordLength)
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
// Returns ErrNoPassword for an empty hash and ErrInvalidPassword on mismatch.
// Candidates longer than MaxPasswordLength never match: bcrypt ignores every
// byte past the limit, and no stored password can be that long.
func VerifyPassword(password string, hash []byte) error {
	if len(hash) == 0 {
		return ErrNoPassword
	}
	if len(password) > MaxPasswordLength {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
