package ports

import (
	"context"
	"time"
)

// RateLimiter is a shared counter over composite string keys. Allow reports
// whether the request identified by key stays within limit for the window.
// Implementations fail closed: on backend errors they return the error and
// callers must deny.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
