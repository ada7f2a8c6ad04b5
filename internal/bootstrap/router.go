package bootstrap

import (
	"log"
	"os"

	"github.com/go-gitbridge/gitbridge/internal/handlers"
	"github.com/go-gitbridge/gitbridge/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) *gin.Engine {
	setupGinMode()
	r := gin.New()

	r.Use(middleware.Metrics(app.Metrics))
	r.Use(gin.Logger(), gin.Recovery())

	taskHandler := handlers.NewTaskHandler(app.TaskStore, app.Executor, app.Metrics)
	gitHandler := handlers.NewGitHandler(app.GitService)

	// System endpoints
	r.GET("/health", handlers.Health(app.DB, app.Runner))
	r.GET("/version", handlers.Version)
	setupMetricsEndpoint(r, app)

	rateLimiters := setupRateLimiting(app.Config, app.RateLimitRedisClient)

	api := r.Group("/api/v1")
	{
		api.POST("/tasks", rateLimiters.tasks, taskHandler.Create)
		api.GET("/tasks", taskHandler.List)
		api.GET("/tasks/:id", taskHandler.Get)

		git := api.Group("/git")
		{
			git.POST("/oauth/initiate", rateLimiters.oauth, gitHandler.InitiateOAuth)
			git.POST("/oauth/callback", rateLimiters.oauth, gitHandler.OAuthCallback)
			git.GET("/connections", gitHandler.ListConnections)
			git.GET("/connections/:id", gitHandler.GetConnection)
			git.DELETE("/connections/:id", gitHandler.DeleteConnection)
			git.GET("/connections/:id/status", gitHandler.ConnectionStatus)
			git.GET("/connections/:id/token", gitHandler.ConnectionToken)
		}
	}

	log.Printf("Server listening on %s", app.Config.ServerAddr)
	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, app *Application) {
	if !app.Config.MetricsEnabled {
		log.Printf("Prometheus metrics disabled")
		return
	}
	log.Printf("Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// setupGinMode sets Gin mode from the environment, release by default
func setupGinMode() {
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
