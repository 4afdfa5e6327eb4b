package service

//go:generate mockgen -destination=../../mocks/mock_password_hasher.go -package=mocks github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/service PasswordHasher

import (
	"fmt"

	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 10

	// bcrypt only reads the first 72 bytes of a password.
	maxPasswordBytes = 72
)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to DefaultBcryptCost when cost is outside bcrypt's range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(passwordBytes(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", autherror.ErrHashing, err)
	}
	return string(hashed), nil
}

// Verify never fails: a malformed hash is reported as a mismatch.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), passwordBytes(plaintext)) == nil
}

// passwordBytes cuts plaintext to the prefix bcrypt reads. Longer input
// hashes the same as its first 72 bytes.
func passwordBytes(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
