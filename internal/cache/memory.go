package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/models"
)

// Compile-time interface check.
var _ StateCache = (*MemoryCache)(nil)

// MemoryCache implements StateCache with in-memory storage.
// Uses lazy expiration (checks age on Take) plus the explicit sweep the
// orchestrator runs on every initiate.
// Suitable for single-instance deployments.
type MemoryCache struct {
	mu     sync.Mutex
	states map[string]models.OAuthState
	maxAge time.Duration
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache(maxAge time.Duration) *MemoryCache {
	return &MemoryCache{
		states: make(map[string]models.OAuthState),
		maxAge: maxAge,
	}
}

// Put stores a state record.
func (m *MemoryCache) Put(ctx context.Context, token string, state models.OAuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[token] = state
	return nil
}

// Take finds and removes a state record in one step, so a state can never
// be consumed twice.
func (m *MemoryCache) Take(ctx context.Context, token string) (models.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[token]
	if !exists {
		return models.OAuthState{}, ErrCacheMiss
	}
	delete(m.states, token)

	// Lazy expiration check
	if time.Since(state.CreatedAt) > m.maxAge {
		return models.OAuthState{}, ErrCacheMiss
	}

	return state, nil
}

// SweepExpired removes abandoned states older than maxAge.
func (m *MemoryCache) SweepExpired(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, state := range m.states {
		if now.Sub(state.CreatedAt) > m.maxAge {
			delete(m.states, token)
			removed++
		}
	}
	return removed
}

// Close cleans up resources.
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]models.OAuthState)
	return nil
}
