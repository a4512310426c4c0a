// Package cache stores rendered post output keyed by post id and revision.
//
// Two backends exist: RedisCache for deployments that run several server
// instances, and NullCache when caching is off. MemoryCache backs tests and
// single-process runs.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
