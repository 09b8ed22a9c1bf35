package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// DefaultHashCost matches the cost of the seeded hashes.
const DefaultHashCost = 12

// MaxPasswordBytes is the bcrypt input limit. It counts bytes, so accented
// letters take two.
const MaxPasswordBytes = 72

// HashCost is the bcrypt cost applied to new passwords.
var HashCost = DefaultHashCost

// HashPassword returns the bcrypt hash of plain. The salt is embedded in the
// result.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("auth: hash: %w", shared.ErrValidation)
	}
	if len(plain) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: hash: password exceeds %d bytes: %w", MaxPasswordBytes, shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), HashCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares plain against hash in constant time.
func CheckPassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.ErrInvalidCredentials
		}
		return fmt.Errorf("auth: compare: %w", err)
	}
	return nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// dummyPasswordHash stays at DefaultHashCost whatever HashCost is set to.
func dummyPasswordHash() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pecsa-unknown-user"), DefaultHashCost)
	})
	return dummyHash
}

// burnCompare spends the same work as a real comparison so a missing
// username is not distinguishable by response time.
func burnCompare(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(plain))
}
