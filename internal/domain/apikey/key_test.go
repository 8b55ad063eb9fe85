package apikey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

func TestNewKey(t *testing.T) {
	t.Run("defaults the scope", func(t *testing.T) {
		k, err := NewKey("acme", 2, "admin", "CI", "", "abcd1234", "$pbkdf2-sha512$1$a$b")
		require.NoError(t, err)
		assert.Equal(t, ScopeRPC, k.Scope)
		assert.True(t, k.Active())
		assert.NotEqual(t, k.ID.String(), "00000000-0000-0000-0000-000000000000")
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewKey("", 2, "admin", "CI", "rpc", "abcd1234", "h")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewKey("acme", 0, "admin", "CI", "rpc", "abcd1234", "h")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewKey("acme", 2, "admin", "CI", "rpc", "", "h")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestKey_Revoke(t *testing.T) {
	k, err := NewKey("acme", 2, "admin", "CI", "rpc", "abcd1234", "h")
	require.NoError(t, err)

	require.NoError(t, k.Revoke())
	assert.False(t, k.Active())
	assert.ErrorIs(t, k.Revoke(), shared.ErrInvalidState)
}

func TestKey_Touch(t *testing.T) {
	k, err := NewKey("acme", 2, "admin", "CI", "rpc", "abcd1234", "h")
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	k.Touch(at)
	require.NotNil(t, k.LastUsedAt)
	assert.Equal(t, time.UTC, k.LastUsedAt.Location())
	assert.True(t, at.Equal(*k.LastUsedAt))
}
