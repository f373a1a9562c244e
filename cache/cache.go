// Package cache holds short-lived counters and flags: issue rate limits and
// revoked token IDs. Redis is the shared backend; Memory serves demo mode.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Incr bumps the counter at key and returns the new value. The ttl is
	// applied when the counter is created and left alone afterwards.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Decr takes one back from the counter at key without touching its ttl.
	Decr(ctx context.Context, key string) (int64, error)
	// TTL returns the remaining lifetime of key, or zero if it has none.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// SetFlag marks key as present for ttl.
	SetFlag(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	// Name identifies the backend in health reports.
	Name() string
}
