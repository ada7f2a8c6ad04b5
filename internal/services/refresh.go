package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/models"
	"github.com/go-gitbridge/gitbridge/internal/provider"
	"github.com/go-gitbridge/gitbridge/internal/store"
	"github.com/go-gitbridge/gitbridge/internal/vault"
)

// TokenManager hands out usable access tokens for stored connections,
// refreshing them ahead of expiry. Refreshes are serialized per
// connection so concurrent callers hitting the same expiring token
// produce exactly one refresh grant.
type TokenManager struct {
	store   *store.Store
	vault   *vault.Vault
	client  *provider.Client
	buffer  time.Duration
	metrics metrics.Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenManager creates a manager refreshing tokens buffer ahead of
// their recorded expiry.
func NewTokenManager(
	s *store.Store,
	v *vault.Vault,
	client *provider.Client,
	buffer time.Duration,
	m metrics.Recorder,
) *TokenManager {
	return &TokenManager{
		store:   s,
		vault:   v,
		client:  client,
		buffer:  buffer,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}
}

// connLock returns the per-connection refresh mutex, creating it lazily.
func (tm *TokenManager) connLock(id string) *sync.Mutex {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	l, ok := tm.locks[id]
	if !ok {
		l = &sync.Mutex{}
		tm.locks[id] = l
	}
	return l
}

// ValidToken returns a decrypted access token for the connection,
// refreshing it first when it expires within the buffer. The fast path
// takes no lock: a token comfortably inside its lifetime is returned
// immediately.
func (tm *TokenManager) ValidToken(ctx context.Context, conn *models.Connection) (string, error) {
	if !tm.needsRefresh(conn, time.Now()) {
		return tm.vault.Decrypt(conn.AccessTokenEncrypted)
	}

	l := tm.connLock(conn.ID)
	l.Lock()
	defer l.Unlock()

	// Re-read under the lock: another caller may have refreshed while we
	// were waiting.
	fresh, err := tm.store.GetConnection(conn.ID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", errdefs.NotFoundf("connection %s", conn.ID)
		}
		return "", err
	}
	if !tm.needsRefresh(fresh, time.Now()) {
		*conn = *fresh
		return tm.vault.Decrypt(fresh.AccessTokenEncrypted)
	}

	// Without a refresh token the current token is served until it truly
	// expires; only then the connection is unusable.
	if fresh.RefreshTokenEncrypted == "" {
		if time.Now().Before(*fresh.TokenExpiresAt) {
			*conn = *fresh
			return tm.vault.Decrypt(fresh.AccessTokenEncrypted)
		}
		tm.metrics.RecordTokenRefresh(fresh.Provider, false)
		return "", errdefs.RefreshFailedf("token expired and connection %s has no refresh token", fresh.ID)
	}

	if err := tm.refresh(ctx, fresh); err != nil {
		return "", err
	}
	*conn = *fresh
	return tm.vault.Decrypt(fresh.AccessTokenEncrypted)
}

// needsRefresh reports whether the token expires within the buffer. A
// token with no recorded expiry never needs a refresh.
func (tm *TokenManager) needsRefresh(conn *models.Connection, now time.Time) bool {
	if conn.TokenExpiresAt == nil {
		return false
	}
	return now.Add(tm.buffer).After(*conn.TokenExpiresAt)
}

// refresh performs the refresh grant and persists the rotated material.
// On success conn is updated in place with the new encrypted tokens.
func (tm *TokenManager) refresh(ctx context.Context, conn *models.Connection) error {
	p, err := provider.Parse(conn.Provider)
	if err != nil {
		return err
	}

	refreshToken, err := tm.vault.Decrypt(conn.RefreshTokenEncrypted)
	if err != nil {
		tm.metrics.RecordTokenRefresh(conn.Provider, false)
		return err
	}

	set, err := tm.client.Refresh(ctx, p, conn.InstanceURL, refreshToken)
	if err != nil {
		tm.metrics.RecordTokenRefresh(conn.Provider, false)
		return err
	}

	encAccess, err := tm.vault.Encrypt(set.AccessToken)
	if err != nil {
		return err
	}
	encRefresh := ""
	if set.RefreshToken != "" {
		if encRefresh, err = tm.vault.Encrypt(set.RefreshToken); err != nil {
			return err
		}
	}

	now := time.Now()
	if err := tm.store.UpdateConnectionTokens(conn.ID, encAccess, encRefresh, set.ExpiresAt, now); err != nil {
		return err
	}

	conn.AccessTokenEncrypted = encAccess
	if encRefresh != "" {
		conn.RefreshTokenEncrypted = encRefresh
	}
	conn.TokenExpiresAt = set.ExpiresAt
	conn.LastUsedAt = &now

	tm.metrics.RecordTokenRefresh(conn.Provider, true)
	log.Printf("Refreshed %s token for connection %s", conn.Provider, conn.ID)
	return nil
}
