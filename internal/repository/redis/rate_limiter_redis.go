package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// rateLimitScript atomically increments the window counter and arms the TTL
// on the first hit. MULTI/EXEC cannot conditionally EXPIRE on the first
// increment only, hence the script.
const rateLimitScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

// RateLimiter is a fixed-window counter over Redis. It fails closed: a Redis
// error is returned to the caller, who must deny the request.
type RateLimiter struct {
	cmd goredis.Cmdable
}

func NewRateLimiter(cmd goredis.Cmdable) *RateLimiter {
	return &RateLimiter{cmd: cmd}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	count, err := l.cmd.Eval(ctx, rateLimitScript, []string{key}, seconds).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check %q: %w", key, err)
	}
	return count <= int64(limit), nil
}
