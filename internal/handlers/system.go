package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-gitbridge/gitbridge/internal/store"
	"github.com/go-gitbridge/gitbridge/internal/version"
)

// CLIProber reports the external CLI's version, or an error when the
// binary is not runnable.
type CLIProber interface {
	Version(ctx context.Context) (string, error)
}

// Health returns the health check handler. Database connectivity is
// required; a missing CLI degrades the report but the service stays up
// for the OAuth surface.
func Health(db *store.Store, cli CLIProber) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
			return
		}

		cliStatus := "available"
		if _, err := cli.Version(c.Request.Context()); err != nil {
			cliStatus = "unavailable"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"cli":      cliStatus,
		})
	}
}

// Version handles GET /version
func Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":        version.App,
		"version":    version.String(),
		"git_commit": version.GitCommit,
		"build_time": version.BuildTime,
	})
}
