package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher provides one-way password hashing and verification using bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the default bcrypt cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// NewPasswordHasherWithCost creates a hasher with an explicit bcrypt cost.
// Costs outside the valid bcrypt range fall back to the default.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash produces a salted bcrypt digest of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
// A malformed digest fails verification rather than returning an error.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
