// Package bootstrap wires configuration, storage, services, and the
// HTTP layer into a running application.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/cache"
	"github.com/go-gitbridge/gitbridge/internal/cli"
	"github.com/go-gitbridge/gitbridge/internal/config"
	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/provider"
	"github.com/go-gitbridge/gitbridge/internal/services"
	"github.com/go-gitbridge/gitbridge/internal/store"
	"github.com/go-gitbridge/gitbridge/internal/tasks"
	"github.com/go-gitbridge/gitbridge/internal/vault"

	"github.com/appleboy/go-httpclient"
	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	Vault                *vault.Vault
	StateCache           cache.StateCache
	Metrics              metrics.Recorder
	RateLimitRedisClient *redis.Client

	// Business layer
	ProviderClient *provider.Client
	TokenManager   *services.TokenManager
	GitService     *services.GitService
	TaskStore      *tasks.Store
	Runner         *cli.Runner
	Executor       *tasks.Executor

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// Run initializes and starts the application. It blocks until shutdown.
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}
	app.initializeBusinessLayer()
	app.initializeHTTPLayer()
	app.startWithGracefulShutdown()
	return nil
}

func validateConfig(cfg *config.Config) error {
	if cfg.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %s", cfg.DatabaseDriver)
	}
	return nil
}

// initializeInfrastructure sets up database, vault, state cache, metrics,
// and the rate limit Redis client
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = store.New(app.Config.DatabaseDriver, app.Config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	log.Printf("Database initialized (driver: %s)", app.Config.DatabaseDriver)

	app.Vault, err = vault.New(app.Config.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initialize vault: %w", err)
	}

	app.StateCache, err = initializeStateCache(app.Config)
	if err != nil {
		return fmt.Errorf("initialize state cache: %w", err)
	}

	app.Metrics = metrics.Init(app.Config.MetricsEnabled)
	if app.Config.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(context.Background(), app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up the provider client, services, and the
// task execution pipeline
func (app *Application) initializeBusinessLayer() {
	oauthHTTPClient, err := httpclient.NewClient(
		httpclient.WithTimeout(app.Config.OAuthTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to create OAuth HTTP client: %v", err)
	}

	app.ProviderClient = provider.NewClient(
		oauthHTTPClient,
		app.Config.GitHubClientID,
		app.Config.GitLabClientID,
		app.Config.GiteaClientID,
	)
	logProviderStatus(app.Config)

	app.TokenManager = services.NewTokenManager(
		app.DB,
		app.Vault,
		app.ProviderClient,
		app.Config.TokenRefreshBuffer,
		app.Metrics,
	)
	app.GitService = services.NewGitService(
		app.DB,
		app.Vault,
		app.StateCache,
		app.ProviderClient,
		app.TokenManager,
		app.Config.OAuthStateExpiry,
		app.Config.StatusCheckTimeout,
		app.Metrics,
	)

	app.TaskStore = tasks.NewStore(app.Config.TaskTTL)
	app.Runner = cli.NewRunner(app.Config.CLIBinary)
	app.Executor = tasks.NewExecutor(
		app.TaskStore,
		app.Runner,
		app.Config.TaskWorkers,
		app.Config.CLITimeout,
		app.Metrics,
	)
	log.Printf("Task executor initialized (workers: %d, timeout: %s)",
		app.Config.TaskWorkers, app.Config.CLITimeout)
}

// initializeHTTPLayer sets up the router and server
func (app *Application) initializeHTTPLayer() {
	app.Router = setupRouter(app)
	app.Server = createHTTPServer(app.Config, app.Router)
}

func logProviderStatus(cfg *config.Config) {
	configured := []string{}
	if cfg.GitHubClientID != "" {
		configured = append(configured, "github")
	}
	if cfg.GitLabClientID != "" {
		configured = append(configured, "gitlab")
	}
	if cfg.GiteaClientID != "" {
		configured = append(configured, "gitea")
	}
	if len(configured) == 0 {
		log.Printf("Warning: no OAuth client ids configured, all flows will be rejected by providers")
		return
	}
	log.Printf("OAuth providers configured: %v", configured)
}

// startWithGracefulShutdown starts the server and background jobs and
// blocks until they have drained
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addReaperJob(m, app.Config, app.TaskStore, app.Metrics)
	addServerShutdownJob(m, app.Server)
	addExecutorDrainJob(m, app.Config, app.Executor)
	addStateCacheShutdownJob(m, app.StateCache)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addDatabaseShutdownJob(m, app.DB)

	<-m.Done()
}

// addReaperJob runs the expired-task sweep until shutdown
func addReaperJob(
	m *graceful.Manager,
	cfg *config.Config,
	taskStore *tasks.Store,
	rec metrics.Recorder,
) {
	m.AddRunningJob(func(ctx context.Context) error {
		return tasks.RunReaper(ctx, taskStore, cfg.ReaperInterval, rec)
	})
}

// addExecutorDrainJob waits for in-flight CLI executions on shutdown.
// The drain deadline covers one full CLI invocation.
func addExecutorDrainJob(m *graceful.Manager, cfg *config.Config, executor *tasks.Executor) {
	m.AddShutdownJob(func() error {
		log.Println("Draining task executor...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CLITimeout+5*time.Second)
		defer cancel()

		if err := executor.Drain(ctx); err != nil {
			log.Printf("Executor drain incomplete: %v", err)
			return err
		}
		log.Println("Task executor drained")
		return nil
	})
}

// addStateCacheShutdownJob closes the OAuth state cache backend
func addStateCacheShutdownJob(m *graceful.Manager, states cache.StateCache) {
	m.AddShutdownJob(func() error {
		if err := states.Close(); err != nil {
			log.Printf("Error closing state cache: %v", err)
			return err
		}
		return nil
	})
}

// addDatabaseShutdownJob closes the database pool
func addDatabaseShutdownJob(m *graceful.Manager, db *store.Store) {
	m.AddShutdownJob(func() error {
		log.Println("Closing database...")
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
			return err
		}
		return nil
	})
}
