// Package cache stores in-flight OAuth authorization states. States are
// short-lived CSRF records: created on initiate, consumed exactly once on
// callback, discarded after a fixed expiry when abandoned.
package cache

import (
	"context"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/models"
)

// StateCache defines the primitive operations for the OAuth state store.
type StateCache interface {
	// Put stores a state record keyed by its token.
	Put(ctx context.Context, token string, state models.OAuthState) error

	// Take atomically finds and removes a state record.
	// Returns ErrCacheMiss if the token is unknown, consumed, or expired.
	Take(ctx context.Context, token string) (models.OAuthState, error)

	// SweepExpired removes records older than the cache's max age.
	// Returns the number removed. Backends with native TTL may no-op.
	SweepExpired(ctx context.Context, now time.Time) int

	// Close releases backend resources
	Close() error
}
