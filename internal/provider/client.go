package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"

	"golang.org/x/oauth2"
)

// maxErrorSnippet caps how much of a provider error body is surfaced to callers.
const maxErrorSnippet = 200

// TokenSet is the material returned by a token endpoint.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time // nil when the provider returned no expiry
}

// UserInfo is the subset of the provider user profile we persist.
type UserInfo struct {
	Username string
	Email    string
}

// Client performs OAuth2 and API calls against git providers. It carries
// the configured public-client ids; flows for providers without a
// configured id still execute but will be rejected by the provider.
type Client struct {
	httpClient *http.Client
	clientIDs  map[Provider]string
}

// NewClient creates a provider client. httpClient should carry the OAuth
// timeout; per-call deadlines come from the caller's context.
func NewClient(httpClient *http.Client, githubID, gitlabID, giteaID string) *Client {
	return &Client{
		httpClient: httpClient,
		clientIDs: map[Provider]string{
			GitHub: githubID,
			GitLab: gitlabID,
			Gitea:  giteaID,
		},
	}
}

// ClientID returns the configured OAuth client id for a provider, or "".
func (c *Client) ClientID(p Provider) string {
	return c.clientIDs[p]
}

// AuthorizeURL builds the provider authorization URL with PKCE parameters.
// The client_id parameter is included only when configured.
func (c *Client) AuthorizeURL(
	p Provider,
	instanceURL, state, codeChallenge, codeChallengeMethod, redirectURI string,
) string {
	endpoints := EndpointsFor(p, instanceURL)

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("scope", strings.Join(endpoints.Scopes, " "))
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", codeChallengeMethod)
	if id := c.clientIDs[p]; id != "" {
		params.Set("client_id", id)
	}

	return endpoints.AuthURL + "?" + params.Encode()
}

// oauthConfig builds the x/oauth2 config for a provider. No client secret:
// these are public clients using PKCE.
func (c *Client) oauthConfig(p Provider, instanceURL, redirectURI string) *oauth2.Config {
	endpoints := EndpointsFor(p, instanceURL)
	return &oauth2.Config{
		ClientID:    c.clientIDs[p],
		RedirectURL: redirectURI,
		Scopes:      endpoints.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthURL,
			TokenURL:  endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// withHTTPClient injects our configured client into the oauth2 transport.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades an authorization code plus PKCE verifier for tokens.
// Provider rejections surface as ErrBadRequest with the most specific
// error code and description the response body offers.
func (c *Client) Exchange(
	ctx context.Context,
	p Provider,
	instanceURL, code, codeVerifier, redirectURI string,
) (*TokenSet, error) {
	cfg := c.oauthConfig(p, instanceURL, redirectURI)

	tok, err := cfg.Exchange(
		c.withHTTPClient(ctx),
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %s",
			errdefs.ErrBadRequest, retrieveErrorDetail(err))
	}
	if tok.AccessToken == "" {
		return nil, errdefs.BadRequestf("no access token in response")
	}

	return tokenSetFrom(tok), nil
}

// Refresh performs a refresh_token grant. Failures surface as
// ErrRefreshFailed; callers must not fall back to the stale token.
func (c *Client) Refresh(
	ctx context.Context,
	p Provider,
	instanceURL, refreshToken string,
) (*TokenSet, error) {
	cfg := c.oauthConfig(p, instanceURL, "")

	src := cfg.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrRefreshFailed, retrieveErrorDetail(err))
	}
	if tok.AccessToken == "" {
		return nil, errdefs.RefreshFailedf("no access token in refresh response")
	}

	set := tokenSetFrom(tok)
	// oauth2 echoes the old refresh token when the provider omits one;
	// the store treats "" as keep-existing, so only pass through rotations.
	if tok.RefreshToken == refreshToken {
		set.RefreshToken = ""
	}
	return set, nil
}

// FetchUser retrieves the authenticated user's profile.
func (c *Client) FetchUser(
	ctx context.Context,
	p Provider,
	instanceURL, accessToken string,
) (*UserInfo, error) {
	endpoints := EndpointsFor(p, instanceURL)

	body, status, err := c.getWithToken(ctx, endpoints.APIBaseURL+endpoints.UserPath, accessToken)
	if err != nil {
		return nil, errdefs.BadRequestf("failed to fetch user info: %v", err)
	}
	if status != http.StatusOK {
		return nil, errdefs.BadRequestf("failed to fetch user info: HTTP %d", status)
	}

	// GitHub and Gitea expose "login", GitLab "username"
	var profile struct {
		Login    string `json:"login"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, errdefs.BadRequestf("malformed user info response")
	}

	username := profile.Login
	if username == "" {
		username = profile.Username
	}

	return &UserInfo{Username: username, Email: profile.Email}, nil
}

// CheckToken probes the user endpoint with the given token. Network
// errors and non-2xx responses both report an invalid token; this call
// never fails the caller.
func (c *Client) CheckToken(ctx context.Context, p Provider, instanceURL, accessToken string) bool {
	endpoints := EndpointsFor(p, instanceURL)

	_, status, err := c.getWithToken(ctx, endpoints.APIBaseURL+endpoints.UserPath, accessToken)
	return err == nil && status == http.StatusOK
}

func (c *Client) getWithToken(
	ctx context.Context,
	rawURL, accessToken string,
) (body []byte, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func tokenSetFrom(tok *oauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		set.ExpiresAt = &expiry
	}
	return set
}

// retrieveErrorDetail extracts the most specific message from an oauth2
// token endpoint failure: the RFC 6749 error code and description when
// present, otherwise a bounded snippet of the response body.
func retrieveErrorDetail(err error) string {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return err.Error()
	}

	var parts []string
	if rErr.ErrorCode != "" {
		parts = append(parts, "code="+rErr.ErrorCode)
	}
	if rErr.ErrorDescription != "" {
		parts = append(parts, "description="+rErr.ErrorDescription)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	status := ""
	if rErr.Response != nil {
		status = fmt.Sprintf("HTTP %d", rErr.Response.StatusCode)
	}
	snippet := strings.TrimSpace(string(rErr.Body))
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet]
	}
	if snippet == "" {
		return status
	}
	if status == "" {
		return snippet
	}
	return status + " - " + snippet
}
