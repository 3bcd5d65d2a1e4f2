package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// Get decodes the value under key into dest. A miss returns false and no error.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetNX claims key if absent and reports whether the claim succeeded.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
