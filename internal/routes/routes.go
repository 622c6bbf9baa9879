package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/config"
	"github.com/payfast/payfast/internal/history"
	"github.com/payfast/payfast/internal/ledger"
	"github.com/payfast/payfast/internal/middleware"
	"github.com/payfast/payfast/internal/notification"
	"github.com/payfast/payfast/internal/payid"
	"github.com/payfast/payfast/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database the service runs
// on in-memory stores, which only the development profile allows.
func Setup(app *fiber.App, d Deps) error {
	if err := payid.ValidateNamespace(d.Cfg.PayIDNamespace); err != nil {
		return err
	}
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	var cache redis.UniversalClient
	if d.Cache != nil {
		cache = d.Cache
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		accountRepo account.Repository
		store       ledger.Store
	)
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		store = ledger.NewPostgresStore(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		store = ledger.NewInMemory(accountRepo)
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if cache != nil {
		notifier = notification.NewRedisNotifier(cache, d.Cfg.NotifyChannel)
	}

	ids := payid.NewGenerator(accountRepo,
		payid.WithNamespace(d.Cfg.PayIDNamespace),
		payid.WithMaxAttempts(d.Cfg.PayIDMaxAttempts),
	)
	accountSvc := account.NewService(accountRepo, ids, d.Cfg.StartingBalance, account.WithLogger(d.Logger))
	executor := transfer.NewExecutor(store, notifier,
		transfer.WithTimeout(d.Cfg.TransferTimeout),
		transfer.WithLogger(d.Logger),
	)
	reader := history.NewReader(store, accountRepo)

	api := app.Group("/api/v1", middleware.RateLimit(cache, d.Cfg.RateLimitMax, d.Cfg.RateLimitWindow, d.Logger))
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAccountRoutes(api, account.NewHandler(accountSvc))
	RegisterTransferRoutes(api, transfer.NewHandler(executor), middleware.Idempotency(cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterHistoryRoutes(api, history.NewHandler(reader))

	return nil
}
