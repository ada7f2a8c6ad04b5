package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// State cache driver constants
const (
	StateCacheMemory = "memory"
	StateCacheRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Credential encryption
	EncryptionKey string

	// Git OAuth client identifiers (public clients, PKCE flow)
	GitHubClientID string
	GitLabClientID string
	GiteaClientID  string

	// OAuth HTTP settings
	OAuthTimeout       time.Duration // token endpoint / user info calls (default: 15s)
	StatusCheckTimeout time.Duration // connection status probes (default: 10s)
	OAuthStateExpiry   time.Duration // CSRF state lifetime (default: 15m)
	TokenRefreshBuffer time.Duration // refresh this long before expiry (default: 10m)

	// OAuth state cache
	StateCacheDriver string // "memory" or "redis"
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Task execution
	TaskTTL        time.Duration // retention of terminal tasks (default: 1h)
	TaskWorkers    int           // concurrent CLI invocations (default: 4)
	ReaperInterval time.Duration // expired-task sweep interval (default: 5m)

	// CLI collaborator
	CLIBinary  string        // assistant CLI binary name (default: "claude")
	CLITimeout time.Duration // per-invocation ceiling (default: 300s)

	// Metrics
	MetricsEnabled bool

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	TaskRateLimit            int    // requests per minute on task creation
	OAuthRateLimit           int    // requests per minute on OAuth endpoints
	RateLimitCleanupInterval time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "gitbridge.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		GitHubClientID: getEnv("GITHUB_CLIENT_ID", ""),
		GitLabClientID: getEnv("GITLAB_CLIENT_ID", ""),
		GiteaClientID:  getEnv("GITEA_CLIENT_ID", ""),

		OAuthTimeout:       getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),
		StatusCheckTimeout: getEnvDuration("STATUS_CHECK_TIMEOUT", 10*time.Second),
		OAuthStateExpiry:   15 * time.Minute,
		TokenRefreshBuffer: 10 * time.Minute,

		StateCacheDriver: getEnv("STATE_CACHE_DRIVER", StateCacheMemory),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		TaskTTL:        getEnvDuration("TASK_TTL", time.Hour),
		TaskWorkers:    getEnvInt("TASK_WORKERS", 4),
		ReaperInterval: getEnvDuration("REAPER_INTERVAL", 5*time.Minute),

		CLIBinary:  getEnv("CLI_BINARY", "claude"),
		CLITimeout: getEnvDuration("CLI_TIMEOUT", 300*time.Second),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", false),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", "memory"),
		TaskRateLimit:            getEnvInt("TASK_RATE_LIMIT", 30),
		OAuthRateLimit:           getEnvInt("OAUTH_RATE_LIMIT", 10),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
