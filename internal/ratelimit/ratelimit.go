// Package ratelimit limits ingestion requests per client with a fixed window
// counter kept in Redis, so every gateway instance shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Message is the error returned to limited clients.
const Message = "Ingestion rate limit exceeded."

// Result describes the window a request was counted in.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter allows Limit requests per Window for each key.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:ingest:",
		now:    time.Now,
	}
}

// NewRedisLimiterFromURL parses a redis:// URL and returns a limiter with a
// one minute window.
func NewRedisLimiterFromURL(url string, perMinute int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisLimiter(redis.NewClient(opts), perMinute, time.Minute), nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	start := l.now().Truncate(l.window)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(start.Unix(), 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   start.Add(l.window),
	}, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// Middleware rejects clients over their budget with 429. Limiter errors let
// the request through.
func Middleware(l Limiter, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Printf("WARN: rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())))

		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": Message})
			return
		}
		c.Next()
	}
}
