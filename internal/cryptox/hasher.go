// Package cryptox provides the one-way hashing primitive used to store tokens.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// TokenHashCost is the bcrypt work factor for stored tokens. Changing it
// requires a migration plan for hashes already stored.
const TokenHashCost = 10

// Hasher hashes plaintext secrets and verifies them against stored hashes.
type Hasher interface {
	Hash(plaintext string) (string, error)
	// Compare returns (false, nil) on a mismatch and a non-nil error only when
	// the comparison itself could not be performed.
	Compare(plaintext, hashed string) (bool, error)
}

// BcryptHasher is a Hasher backed by bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using TokenHashCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: TokenHashCost}
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// Hash returns the salted bcrypt hash of plaintext. Plaintexts longer than
// 72 bytes are rejected by bcrypt.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare checks plaintext against a bcrypt hash in constant time.
func (h *BcryptHasher) Compare(plaintext, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
