package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/middleware"
	"github.com/nile-pay/nile_pay/internal/notification"
	"github.com/nile-pay/nile_pay/internal/rates"
	"github.com/nile-pay/nile_pay/internal/reconcile"
	"github.com/nile-pay/nile_pay/internal/transaction"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores and services
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewMemoryStore()
	}

	converter, err := rates.NewConverter(rates.Default(), d.Cfg.ReferenceCurrency)
	if err != nil {
		return err
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	txSvc := transaction.NewService(store, converter, notifier,
		transaction.WithRetryPolicy(d.Cfg.ApplyMaxAttempts, d.Cfg.RetryBackoff))
	walletSvc := wallet.NewService(store, d.Cfg.ReferenceCurrency)
	reconcileSvc := reconcile.NewService(store)

	txHandler := transaction.NewHandler(txSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	reconcileHandler := reconcile.NewHandler(reconcileSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, walletHandler, reconcileHandler)
	RegisterTransactionRoutes(api, txHandler, d)

	return nil
}
