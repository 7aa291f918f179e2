package cache

import (
	"context"
	"time"
)

// Cache is the small read-through cache the usecases consume for profile
// lookups. Values are opaque bytes; callers handle serialization.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}
