package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(age time.Duration) models.OAuthState {
	return models.OAuthState{
		Provider:    "github",
		RedirectURI: "https://app.example.com/callback",
		CreatedAt:   time.Now().UTC().Add(-age),
	}
}

func TestMemoryCache_PutTake(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)
	ctx := context.Background()

	state := newState(0)
	require.NoError(t, c.Put(ctx, "state-1", state))

	got, err := c.Take(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "github", got.Provider)
	assert.Equal(t, state.RedirectURI, got.RedirectURI)
}

func TestMemoryCache_TakeConsumesExactlyOnce(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "state-1", newState(0)))

	_, err := c.Take(ctx, "state-1")
	require.NoError(t, err)

	_, err = c.Take(ctx, "state-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_TakeUnknown(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)

	_, err := c.Take(context.Background(), "never-stored")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_TakeExpired(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)
	ctx := context.Background()

	// Older than the max age, never consumed
	require.NoError(t, c.Put(ctx, "stale", newState(16*time.Minute)))

	_, err := c.Take(ctx, "stale")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_SweepExpired(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "fresh", newState(time.Minute)))
	require.NoError(t, c.Put(ctx, "stale-1", newState(20*time.Minute)))
	require.NoError(t, c.Put(ctx, "stale-2", newState(time.Hour)))

	removed := c.SweepExpired(ctx, time.Now().UTC())
	assert.Equal(t, 2, removed)

	_, err := c.Take(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(15 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "state-1", newState(0)))
	require.NoError(t, c.Close())

	_, err := c.Take(ctx, "state-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
