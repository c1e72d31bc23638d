package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/gatekeeper/domain"
)

func TestMemoryTokenCache(t *testing.T) {
	c := NewMemoryTokenCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	token := &domain.Token{
		ID:        "tok-1",
		Kind:      domain.UserToken,
		ClientID:  "client-1",
		Enabled:   true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, token))

	got, err := c.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)
	assert.Equal(t, token.ClientID, got.ClientID)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, c.Delete(ctx, "tok-1"))
	_, err = c.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestMemoryTokenCache_ExpiredTokenNotStored(t *testing.T) {
	c := NewMemoryTokenCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.Token{
		ID:        "tok-expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := c.Get(ctx, "tok-expired")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestMemoryTokenCache_Clear(t *testing.T) {
	c := NewMemoryTokenCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.Token{ID: "a", Enabled: true}))
	require.NoError(t, c.Set(ctx, &domain.Token{ID: "b", Enabled: true}))
	require.NoError(t, c.Clear(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotCached)
}
