package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/services"
)

type GitHandler struct {
	git *services.GitService
}

func NewGitHandler(git *services.GitService) *GitHandler {
	return &GitHandler{git: git}
}

type initiateOAuthRequest struct {
	Provider            string `json:"provider" binding:"required"`
	InstanceURL         string `json:"instance_url"`
	RedirectURI         string `json:"redirect_uri" binding:"required"`
	CodeChallenge       string `json:"code_challenge" binding:"required,min=43,max=128"`
	CodeChallengeMethod string `json:"code_challenge_method" binding:"required"`
}

// InitiateOAuth handles POST /api/v1/git/oauth/initiate
func (h *GitHandler) InitiateOAuth(c *gin.Context) {
	var req initiateOAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errdefs.BadRequestf("invalid request: %v", err))
		return
	}

	res, err := h.git.InitiateOAuth(
		c.Request.Context(),
		req.Provider, req.InstanceURL, req.RedirectURI,
		req.CodeChallenge, req.CodeChallengeMethod,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type oauthCallbackRequest struct {
	Provider     string `json:"provider" binding:"required"`
	Code         string `json:"code" binding:"required"`
	State        string `json:"state" binding:"required"`
	CodeVerifier string `json:"code_verifier" binding:"required,min=43,max=128"`
	RedirectURI  string `json:"redirect_uri" binding:"required"`
}

// OAuthCallback handles POST /api/v1/git/oauth/callback
func (h *GitHandler) OAuthCallback(c *gin.Context) {
	var req oauthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errdefs.BadRequestf("invalid request: %v", err))
		return
	}

	view, err := h.git.HandleCallback(
		c.Request.Context(),
		req.Provider, req.Code, req.State, req.CodeVerifier, req.RedirectURI,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListConnections handles GET /api/v1/git/connections
func (h *GitHandler) ListConnections(c *gin.Context) {
	views, err := h.git.ListConnections()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connections": views,
		"count":       len(views),
	})
}

// GetConnection handles GET /api/v1/git/connections/:id
func (h *GitHandler) GetConnection(c *gin.Context) {
	view, err := h.git.GetConnection(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteConnection handles DELETE /api/v1/git/connections/:id
func (h *GitHandler) DeleteConnection(c *gin.Context) {
	if err := h.git.DeleteConnection(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConnectionStatus handles GET /api/v1/git/connections/:id/status
func (h *GitHandler) ConnectionStatus(c *gin.Context) {
	status, err := h.git.ConnectionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ConnectionToken handles GET /api/v1/git/connections/:id/token. The
// token is decrypted and refreshed on demand; this endpoint exists for
// trusted internal callers performing git operations.
func (h *GitHandler) ConnectionToken(c *gin.Context) {
	token, err := h.git.AccessToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}
