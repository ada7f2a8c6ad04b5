package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/models"

	"github.com/redis/rueidis"
)

// Compile-time interface check.
var _ StateCache = (*RueidisCache)(nil)

// RueidisCache implements StateCache using Redis via the rueidis client.
// Suitable for multi-instance deployments where a callback may land on a
// different instance than the initiate. Consumed-once semantics come from
// GETDEL; abandonment from the key TTL, so SweepExpired is a no-op.
type RueidisCache struct {
	client    rueidis.Client
	keyPrefix string
	maxAge    time.Duration
}

// NewRueidisCache creates a new Redis state cache instance using rueidis.
func NewRueidisCache(
	ctx context.Context,
	addr, password string,
	db int,
	maxAge time.Duration,
) (*RueidisCache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true, // Basic mode without client-side caching
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	// Test connection with provided context
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RueidisCache{
		client:    client,
		keyPrefix: "oauth_state:",
		maxAge:    maxAge,
	}, nil
}

// Put stores a state record with the cache's max age as TTL.
func (r *RueidisCache) Put(ctx context.Context, token string, state models.OAuthState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	cmd := r.client.B().Set().
		Key(r.keyPrefix + token).
		Value(string(encoded)).
		Ex(r.maxAge).
		Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Take atomically fetches and deletes a state record via GETDEL.
func (r *RueidisCache) Take(ctx context.Context, token string) (models.OAuthState, error) {
	cmd := r.client.B().Getdel().Key(r.keyPrefix + token).Build()
	resp := r.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return models.OAuthState{}, ErrCacheMiss
		}
		return models.OAuthState{}, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	str, err := resp.ToString()
	if err != nil {
		return models.OAuthState{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	var state models.OAuthState
	if err := json.Unmarshal([]byte(str), &state); err != nil {
		return models.OAuthState{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	return state, nil
}

// SweepExpired is a no-op; Redis evicts states by key TTL.
func (r *RueidisCache) SweepExpired(ctx context.Context, now time.Time) int {
	return 0
}

// Close closes the Redis connection
func (r *RueidisCache) Close() error {
	r.client.Close()
	return nil
}
