package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{"github", GitHub, false},
		{"GitHub", GitHub, false},
		{"gitlab", GitLab, false},
		{"gitea", Gitea, false},
		{"bitbucket", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		p, err := Parse(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, errdefs.ErrBadRequest, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, p)
	}
}

func TestSelfHosted(t *testing.T) {
	assert.False(t, GitHub.SelfHosted())
	assert.True(t, GitLab.SelfHosted())
	assert.True(t, Gitea.SelfHosted())
}

func TestEndpointsFor(t *testing.T) {
	gh := EndpointsFor(GitHub, "")
	assert.Equal(t, "https://github.com/login/oauth/authorize", gh.AuthURL)
	assert.Equal(t, "https://github.com/login/oauth/access_token", gh.TokenURL)
	assert.Equal(t, "https://api.github.com", gh.APIBaseURL)
	assert.Contains(t, gh.Scopes, "repo")

	gl := EndpointsFor(GitLab, "https://gitlab.example.com")
	assert.Equal(t, "https://gitlab.example.com/oauth/authorize", gl.AuthURL)
	assert.Equal(t, "https://gitlab.example.com/api/v4", gl.APIBaseURL)
	assert.Contains(t, gl.Scopes, "read_repository")

	gt := EndpointsFor(Gitea, "https://gitea.example.com")
	assert.Equal(t, "https://gitea.example.com/login/oauth/access_token", gt.TokenURL)
	assert.Equal(t, "https://gitea.example.com/api/v1", gt.APIBaseURL)
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(http.DefaultClient, "gh-client-id", "", "")

	rawURL := c.AuthorizeURL(
		GitHub, "", "state-token",
		"dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk", "S256",
		"https://app.example.com/callback",
	)

	assert.True(t, strings.HasPrefix(rawURL, "https://github.com/login/oauth/authorize?"))
	assert.Contains(t, rawURL, "client_id=gh-client-id")
	assert.Contains(t, rawURL, "state=state-token")
	assert.Contains(t, rawURL, "code_challenge=dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	assert.Contains(t, rawURL, "code_challenge_method=S256")
	assert.Contains(t, rawURL, "response_type=code")
}

func TestAuthorizeURL_NoClientID(t *testing.T) {
	c := NewClient(http.DefaultClient, "", "", "")

	rawURL := c.AuthorizeURL(GitHub, "", "s", "challenge", "S256", "https://a/cb")
	assert.NotContains(t, rawURL, "client_id")
}

func TestFetchUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"login": "gitea-user",
			"email": "user@example.com",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "", "gitea-id")
	info, err := c.FetchUser(context.Background(), Gitea, srv.URL, "token-123")
	require.NoError(t, err)
	assert.Equal(t, "gitea-user", info.Username)
	assert.Equal(t, "user@example.com", info.Email)
}

func TestFetchUser_GitLabUsernameField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"username": "gl-user"})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "gl-id", "")
	info, err := c.FetchUser(context.Background(), GitLab, srv.URL, "tok")
	require.NoError(t, err)
	assert.Equal(t, "gl-user", info.Username)
}

func TestFetchUser_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "", "id")
	_, err := c.FetchUser(context.Background(), Gitea, srv.URL, "bad-token")
	assert.ErrorIs(t, err, errdefs.ErrBadRequest)
}

func TestCheckToken(t *testing.T) {
	valid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer valid.Close()

	c := NewClient(valid.Client(), "", "", "id")
	assert.True(t, c.CheckToken(context.Background(), Gitea, valid.URL, "tok"))

	invalid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer invalid.Close()

	c = NewClient(invalid.Client(), "", "", "id")
	assert.False(t, c.CheckToken(context.Background(), Gitea, invalid.URL, "tok"))

	// Unreachable server reports invalid, not an error
	invalid.Close()
	assert.False(t, c.CheckToken(context.Background(), Gitea, invalid.URL, "tok"))
}

func TestExchange_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "authorization code expired",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "", "gitea-id")
	_, err := c.Exchange(context.Background(), Gitea, srv.URL, "code", "verifier", "https://a/cb")
	require.ErrorIs(t, err, errdefs.ErrBadRequest)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Contains(t, err.Error(), "authorization code expired")
}

func TestExchange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.Equal(t, "the-verifier", r.Form.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "bearer",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "", "gitea-id")
	set, err := c.Exchange(context.Background(), Gitea, srv.URL, "the-code", "the-verifier", "https://a/cb")
	require.NoError(t, err)
	assert.Equal(t, "new-access", set.AccessToken)
	assert.Equal(t, "new-refresh", set.RefreshToken)
	require.NotNil(t, set.ExpiresAt)
}

func TestRefresh_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "", "", "gitea-id")
	_, err := c.Refresh(context.Background(), Gitea, srv.URL, "dead-refresh-token")
	assert.ErrorIs(t, err, errdefs.ErrRefreshFailed)
}
