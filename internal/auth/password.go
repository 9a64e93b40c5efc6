package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is enforced on signup and password resets
	MinPasswordLength = 8
)

// HashPassword hashes a plaintext password using bcrypt at the given cost
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash
// Returns nil if the password matches, an error otherwise
func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
