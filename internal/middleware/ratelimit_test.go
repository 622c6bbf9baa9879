package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payfast/payfast/internal/apierr"
	"github.com/payfast/payfast/internal/logging"
)

func rateLimitedApp(cache redis.UniversalClient, max int) *fiber.App {
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: apierr.Handler(logger)})
	app.Use(RateLimit(cache, max, time.Minute, logger))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func get(t *testing.T, app *fiber.App) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("X-RateLimit-Remaining")
}

func TestRateLimitBlocksAfterMax(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := rateLimitedApp(cache, 3)
	for i := 0; i < 3; i++ {
		status, _ := get(t, app)
		if status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, status)
		}
	}
	status, remaining := get(t, app)
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", status)
	}
	if remaining != "0" {
		t.Fatalf("expected remaining 0, got %q", remaining)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	mr.Close()

	app := rateLimitedApp(cache, 1)
	for i := 0; i < 3; i++ {
		if status, _ := get(t, app); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200 with redis down, got %d", i, status)
		}
	}
}

func TestRateLimitWithoutCache(t *testing.T) {
	app := rateLimitedApp(nil, 1)
	for i := 0; i < 3; i++ {
		if status, _ := get(t, app); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, status)
		}
	}
}
