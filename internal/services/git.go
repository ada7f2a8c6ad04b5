// Package services orchestrates the OAuth connection lifecycle: flow
// initiation, callback handling, token refresh, and connection
// management on top of the store, vault, cache, and provider layers.
package services

import (
	"context"
	"errors"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/cache"
	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/models"
	"github.com/go-gitbridge/gitbridge/internal/provider"
	"github.com/go-gitbridge/gitbridge/internal/store"
	"github.com/go-gitbridge/gitbridge/internal/util"
	"github.com/go-gitbridge/gitbridge/internal/vault"
)

// pkcePattern is the legal character set for PKCE challenges and
// verifiers (RFC 7636 base64url alphabet).
var pkcePattern = regexp.MustCompile(`^[A-Za-z0-9\-_~]+$`)

// GitService runs the OAuth flows and manages stored connections.
type GitService struct {
	store   *store.Store
	vault   *vault.Vault
	states  cache.StateCache
	client  *provider.Client
	tokens  *TokenManager
	metrics metrics.Recorder

	stateExpiry   time.Duration
	statusTimeout time.Duration
}

// NewGitService wires the OAuth flow orchestrator.
func NewGitService(
	s *store.Store,
	v *vault.Vault,
	states cache.StateCache,
	client *provider.Client,
	tokens *TokenManager,
	stateExpiry, statusTimeout time.Duration,
	m metrics.Recorder,
) *GitService {
	return &GitService{
		store:         s,
		vault:         v,
		states:        states,
		client:        client,
		tokens:        tokens,
		metrics:       m,
		stateExpiry:   stateExpiry,
		statusTimeout: statusTimeout,
	}
}

// InitiateOAuth starts an authorization flow: validates the input,
// stores a single-use state record, and returns the provider
// authorization URL for the caller to open.
func (g *GitService) InitiateOAuth(
	ctx context.Context,
	providerName, instanceURL, redirectURI, codeChallenge, codeChallengeMethod string,
) (*models.OAuthInitiateResult, error) {
	p, err := provider.Parse(providerName)
	if err != nil {
		return nil, err
	}

	instanceURL, err = normalizeInstanceURL(p, instanceURL)
	if err != nil {
		return nil, err
	}

	if codeChallenge == "" || !pkcePattern.MatchString(codeChallenge) {
		return nil, errdefs.BadRequestf("invalid code challenge")
	}
	if codeChallengeMethod != "S256" && codeChallengeMethod != "plain" {
		return nil, errdefs.BadRequestf("unsupported code challenge method: %s", codeChallengeMethod)
	}
	if redirectURI == "" {
		return nil, errdefs.BadRequestf("redirect URI is required")
	}

	if g.client.ClientID(p) == "" {
		log.Printf("Warning: no OAuth client id configured for %s, provider will reject the flow", p)
	}

	// Opportunistic cleanup of abandoned flows
	g.states.SweepExpired(ctx, time.Now())

	state, err := util.RandomURLSafe(32)
	if err != nil {
		return nil, err
	}
	record := models.OAuthState{
		Provider:    string(p),
		InstanceURL: instanceURL,
		RedirectURI: redirectURI,
		CreatedAt:   time.Now(),
	}
	if err := g.states.Put(ctx, state, record); err != nil {
		return nil, err
	}

	g.metrics.RecordOAuthInitiated(string(p))
	return &models.OAuthInitiateResult{
		AuthorizationURL: g.client.AuthorizeURL(p, instanceURL, state, codeChallenge, codeChallengeMethod, redirectURI),
		State:            state,
	}, nil
}

// HandleCallback completes an authorization flow: consumes the state,
// exchanges the code, fetches the user profile, and persists a new
// encrypted connection. Nothing is written until every step succeeded.
func (g *GitService) HandleCallback(
	ctx context.Context,
	providerName, code, state, codeVerifier, redirectURI string,
) (*models.ConnectionView, error) {
	p, err := provider.Parse(providerName)
	if err != nil {
		return nil, err
	}

	if code == "" {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, errdefs.BadRequestf("authorization code is required")
	}
	if codeVerifier == "" || !pkcePattern.MatchString(codeVerifier) {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, errdefs.BadRequestf("invalid code verifier")
	}

	record, err := g.states.Take(ctx, state)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, errdefs.NotFoundf("state not found or expired")
		}
		return nil, err
	}
	if record.Provider != string(p) {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, errdefs.BadRequestf("state was issued for provider %s", record.Provider)
	}
	if record.RedirectURI != redirectURI {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, errdefs.BadRequestf("redirect URI does not match the initiated flow")
	}

	set, err := g.client.Exchange(ctx, p, record.InstanceURL, code, codeVerifier, record.RedirectURI)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}

	user, err := g.client.FetchUser(ctx, p, record.InstanceURL, set.AccessToken)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}

	encAccess, err := g.vault.Encrypt(set.AccessToken)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}
	encRefresh, err := g.vault.Encrypt(set.RefreshToken)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}

	id, err := util.RandomURLSafe(16)
	if err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}

	conn := &models.Connection{
		ID:                    id,
		Provider:              string(p),
		InstanceURL:           record.InstanceURL,
		Username:              user.Username,
		Email:                 user.Email,
		AccessTokenEncrypted:  encAccess,
		RefreshTokenEncrypted: encRefresh,
		TokenExpiresAt:        set.ExpiresAt,
		Scopes:                provider.EndpointsFor(p, record.InstanceURL).Scopes,
		ConnectedAt:           time.Now(),
		IsActive:              true,
	}
	if err := g.store.CreateConnection(conn); err != nil {
		g.metrics.RecordOAuthCallback(string(p), false)
		return nil, err
	}

	g.metrics.RecordOAuthCallback(string(p), true)
	log.Printf("New %s connection %s for user %s", p, conn.ID, conn.Username)
	view := conn.View()
	return &view, nil
}

// GetConnection returns one connection, active or not.
func (g *GitService) GetConnection(id string) (*models.ConnectionView, error) {
	conn, err := g.store.GetConnection(id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("connection %s", id)
		}
		return nil, err
	}
	view := conn.View()
	return &view, nil
}

// ListConnections returns all active connections.
func (g *GitService) ListConnections() ([]models.ConnectionView, error) {
	conns, err := g.store.ListActiveConnections()
	if err != nil {
		return nil, err
	}
	views := make([]models.ConnectionView, 0, len(conns))
	for i := range conns {
		views = append(views, conns[i].View())
	}
	return views, nil
}

// DeleteConnection removes a connection and its stored tokens.
func (g *GitService) DeleteConnection(id string) error {
	err := g.store.DeleteConnection(id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return errdefs.NotFoundf("connection %s", id)
	}
	return err
}

// ConnectionStatus probes the provider with the connection's token,
// refreshing it first if it is about to expire. Any failure along the
// way reports an invalid connection rather than an error.
func (g *GitService) ConnectionStatus(ctx context.Context, id string) (*models.ConnectionStatus, error) {
	conn, err := g.store.GetConnection(id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("connection %s", id)
		}
		return nil, err
	}

	status := &models.ConnectionStatus{
		ConnectionID: conn.ID,
		Username:     conn.Username,
		Scopes:       conn.Scopes,
		CheckedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, g.statusTimeout)
	defer cancel()

	token, err := g.tokens.ValidToken(ctx, conn)
	if err != nil {
		log.Printf("Status check for connection %s: %v", id, err)
		g.metrics.RecordStatusCheck(conn.Provider, false)
		return status, nil
	}

	p, _ := provider.Parse(conn.Provider)
	status.IsValid = g.client.CheckToken(ctx, p, conn.InstanceURL, token)
	if status.IsValid {
		if err := g.store.TouchConnection(id, time.Now()); err != nil {
			log.Printf("Cannot touch connection %s: %v", id, err)
		}
	}
	g.metrics.RecordStatusCheck(conn.Provider, status.IsValid)
	return status, nil
}

// AccessToken returns a usable decrypted access token for internal git
// operations, refreshing it when needed.
func (g *GitService) AccessToken(ctx context.Context, id string) (string, error) {
	conn, err := g.store.GetConnection(id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", errdefs.NotFoundf("connection %s", id)
		}
		return "", err
	}
	return g.tokens.ValidToken(ctx, conn)
}

// normalizeInstanceURL validates the instance URL rules: required and
// HTTPS for self-hosted providers, ignored for GitHub. A trailing slash
// is stripped so endpoint paths join cleanly.
func normalizeInstanceURL(p provider.Provider, instanceURL string) (string, error) {
	if !p.SelfHosted() {
		return "", nil
	}
	if instanceURL == "" {
		return "", errdefs.BadRequestf("instance URL is required for %s", p)
	}

	u, err := url.Parse(instanceURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return "", errdefs.BadRequestf("instance URL must be a valid https URL")
	}
	return strings.TrimRight(instanceURL, "/"), nil
}
