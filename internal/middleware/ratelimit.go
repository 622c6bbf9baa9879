package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payfast/payfast/internal/apierr"
)

const rateLimitPrefix = "ratelimit:v1:"

// RateLimit allows max requests per client IP in each fixed window. Counters live in Redis so
// every instance shares them. Without a cache, or when Redis fails, requests pass through.
func RateLimit(cache redis.UniversalClient, max int, window time.Duration, logger *slog.Logger) fiber.Handler {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		now := time.Now().UnixNano()
		bucket := now / int64(window)
		key := rateLimitPrefix + c.IP() + ":" + strconv.FormatInt(bucket, 10)

		ctx := c.UserContext()
		pipe := cache.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("ip", c.IP()), slog.Any("error", err))
			}
			return c.Next()
		}

		count := incr.Val()
		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(max) {
			reset := window - time.Duration(now%int64(window))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(reset.Seconds())+1))
			return apierr.New(http.StatusTooManyRequests, apierr.KindRateLimited, "too many requests, please try again later")
		}
		return c.Next()
	}
}
