package cache

import "errors"

var (
	// ErrCacheMiss indicates the requested state was not found, already
	// consumed, or expired
	ErrCacheMiss = errors.New("cache: state not found")

	// ErrCacheUnavailable indicates the cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue indicates the cached value cannot be parsed
	ErrInvalidValue = errors.New("cache: invalid value")
)
