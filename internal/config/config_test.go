package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "gitbridge.db", cfg.DatabaseDSN)
	assert.Equal(t, StateCacheMemory, cfg.StateCacheDriver)
	assert.Equal(t, 15*time.Minute, cfg.OAuthStateExpiry)
	assert.Equal(t, 10*time.Minute, cfg.TokenRefreshBuffer)
	assert.Equal(t, time.Hour, cfg.TaskTTL)
	assert.Equal(t, 4, cfg.TaskWorkers)
	assert.Equal(t, 5*time.Minute, cfg.ReaperInterval)
	assert.Equal(t, "claude", cfg.CLIBinary)
	assert.Equal(t, 300*time.Second, cfg.CLITimeout)
	assert.Equal(t, 10*time.Second, cfg.StatusCheckTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost user=gitbridge")
	t.Setenv("TASK_TTL", "30m")
	t.Setenv("TASK_WORKERS", "8")
	t.Setenv("CLI_BINARY", "claude-dev")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "host=localhost user=gitbridge", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, cfg.TaskTTL)
	assert.Equal(t, 8, cfg.TaskWorkers)
	assert.Equal(t, "claude-dev", cfg.CLIBinary)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_SQLitePathFallback(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/legacy.db")

	cfg := Load()
	assert.Equal(t, "/tmp/legacy.db", cfg.DatabaseDSN)
}

func TestLoad_InvalidDurationUsesDefault(t *testing.T) {
	t.Setenv("TASK_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.TaskTTL)
}
