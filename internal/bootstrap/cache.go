package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/cache"
	"github.com/go-gitbridge/gitbridge/internal/config"
)

// initializeStateCache creates the OAuth state cache backend. Memory is
// the default; Redis is required when callbacks may land on a different
// instance than the initiate.
func initializeStateCache(cfg *config.Config) (cache.StateCache, error) {
	switch cfg.StateCacheDriver {
	case config.StateCacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c, err := cache.NewRueidisCache(
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			cfg.OAuthStateExpiry,
		)
		if err != nil {
			return nil, err
		}
		log.Printf("OAuth state cache: redis (%s, db %d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default:
		log.Printf("OAuth state cache: memory (single instance only)")
		return cache.NewMemoryCache(cfg.OAuthStateExpiry), nil
	}
}
