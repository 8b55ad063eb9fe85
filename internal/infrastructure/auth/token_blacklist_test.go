package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewInMemoryTokenBlacklist()
	b.now = func() time.Time { return now }

	require.NoError(t, b.Revoke(ctx, "jti-1", now.Add(time.Hour)))

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	// the entry lapses with the token
	now = now.Add(2 * time.Hour)
	revoked, err = b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_PastExpiryIgnored(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryTokenBlacklist()

	require.NoError(t, b.Revoke(ctx, "expired", time.Now().Add(-time.Second)))
	assert.Equal(t, 0, b.Len())
}

func TestInMemoryTokenBlacklist_PrunesOnRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewInMemoryTokenBlacklist()
	b.now = func() time.Time { return now }

	require.NoError(t, b.Revoke(ctx, "short", now.Add(time.Minute)))
	require.NoError(t, b.Revoke(ctx, "long", now.Add(time.Hour)))
	assert.Equal(t, 2, b.Len())

	now = now.Add(10 * time.Minute)
	require.NoError(t, b.Revoke(ctx, "new", now.Add(time.Hour)))
	assert.Equal(t, 2, b.Len())
}
