package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := NewBcryptHasher()

	hashed, err := h.Hash("tok-123")
	require.NoError(t, err)
	assert.NotEqual(t, "tok-123", hashed)

	ok, err := h.Compare("tok-123", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare("tok-124", hashed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_UsesFixedCost(t *testing.T) {
	h := NewBcryptHasher()
	assert.Equal(t, 10, h.Cost())

	hashed, err := h.Hash("tok")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, TokenHashCost, cost)
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher()

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two hashes of the same plaintext must differ")
}

func TestBcryptHasher_CompareMalformedHash(t *testing.T) {
	h := NewBcryptHasher()

	ok, err := h.Compare("tok", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher()

	_, err := h.Hash(strings.Repeat("x", 73))
	assert.Error(t, err)
}
