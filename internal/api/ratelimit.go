package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client request budget. Counters live in Redis
// so the limit holds across replicas; when Redis is unreachable it degrades
// to per-process token buckets rather than failing open or closed.
type RateLimiter struct {
	rdb    *redis.Client
	perMin int
	window time.Duration

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing perMin requests per client per
// minute. rdb may be nil to run purely in-process.
func NewRateLimiter(rdb *redis.Client, perMin int) *RateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &RateLimiter{
		rdb:    rdb,
		perMin: perMin,
		window: time.Minute,
		local:  make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the client identified by key may proceed
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.rdb != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		log.Warn().Err(err).Msg("Redis rate limit check failed, using local limiter")
	}
	return rl.allowLocal(key)
}

// allowRedis counts requests in a fixed window keyed by client and minute
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window.Seconds()))

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(rl.perMin), nil
}

// allowLocal uses one token bucket per client key
func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.local[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.perMin)
		rl.local[key] = limiter
	}
	return limiter.Allow()
}

// RateLimitMiddleware rejects clients over their request budget with 429
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.Request.Context(), c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
