package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func TestInMemoryDiscoveryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryDiscoveryCache()

	var got []fieldInfo
	found, err := c.Get(ctx, "acme", "fields:res.partner", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := []fieldInfo{{Name: "name", Type: "char"}}
	require.NoError(t, c.Set(ctx, "acme", "fields:res.partner", want, time.Minute))

	found, err = c.Get(ctx, "acme", "fields:res.partner", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	// databases do not share entries
	found, err = c.Get(ctx, "other", "fields:res.partner", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryDiscoveryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryDiscoveryCache()
	require.NoError(t, c.Set(ctx, "acme", "k", "v", -time.Second))

	var got string
	found, err := c.Get(ctx, "acme", "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, string, any) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, string, any, time.Duration) error {
	return errors.New("connection refused")
}

func TestFallbackDiscoveryCache(t *testing.T) {
	ctx := context.Background()
	c := NewFallbackDiscoveryCache(brokenCache{}, zap.NewNop())

	require.NoError(t, c.Set(ctx, "acme", "models", []string{"res.partner"}, time.Minute))

	var got []string
	found, err := c.Get(ctx, "acme", "models", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"res.partner"}, got)
}
