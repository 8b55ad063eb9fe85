package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, index, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Len(t, key, IndexSize+1+TokenSize)
	assert.True(t, strings.HasPrefix(key, index+"_"))

	got, err := APIKeyIndex(key)
	require.NoError(t, err)
	assert.Equal(t, index, got)

	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestAPIKeyIndex_Malformed(t *testing.T) {
	for _, key := range []string{"", "short", "abcdefgh-01234567890123456789", "abcdefgh_0123"} {
		_, err := APIKeyIndex(key)
		assert.ErrorIs(t, err, ErrMalformedAPIKey, key)
	}
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	key, _, err := GenerateAPIKey()
	require.NoError(t, err)

	hash, err := HashAPIKey(key, 1000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$pbkdf2-sha512$1000$"))
	assert.NotContains(t, hash, "+")
	assert.NotContains(t, hash, "=")

	ok, err := VerifyAPIKey(key, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyAPIKey(key+"x", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAPIKey_FixedSalt(t *testing.T) {
	salt := []byte("saltsaltsaltsalt")
	hash := hashWithSalt("password", salt, 1000)
	assert.Equal(t, hash, hashWithSalt("password", salt, 1000))
	assert.Contains(t, hash, "$"+ab64.EncodeToString(salt)+"$")

	ok, err := VerifyAPIKey("password", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAPIKey_MalformedHash(t *testing.T) {
	for _, hash := range []string{"", "plain", "$pbkdf2-sha256$1000$c2FsdA$c2FsdA", "$pbkdf2-sha512$x$c2FsdA$c2FsdA"} {
		_, err := VerifyAPIKey("key", hash)
		assert.ErrorIs(t, err, ErrMalformedHash, hash)
	}
}
