package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenHashRoundTrip(t *testing.T) {
	token, err := NewGuestToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	hash, err := HashToken(token)
	require.NoError(t, err)
	assert.NotContains(t, hash, token)

	ok, err := VerifyToken(token, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyToken("autre-jeton", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokensAreUnique(t *testing.T) {
	a, err := NewGuestToken()
	require.NoError(t, err)
	b, err := NewGuestToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Sel aléatoire : deux hash du même jeton diffèrent.
	h1, err := HashToken(a)
	require.NoError(t, err)
	h2, err := HashToken(a)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyTokenRejectsMalformedHash(t *testing.T) {
	_, err := VerifyToken("jeton", "pas-un-hash")
	assert.Error(t, err)
}
