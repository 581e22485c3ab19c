package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies account passwords with bcrypt.
type PasswordHasher struct {
	cost int
	// dummy is compared against when there is no stored hash, so a missing
	// account costs as much as a wrong password.
	dummy []byte
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskhub-no-such-account"), cost)
	if err != nil {
		panic(fmt.Sprintf("failed to prepare dummy hash: %v", err))
	}
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// Hash returns a salted bcrypt digest. Every call uses a fresh salt.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. A mismatch is not an error.
// An empty hash still runs a full comparison and always reports false.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
