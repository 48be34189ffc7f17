package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/middleware"
	"github.com/nile-pay/nile_pay/internal/transaction"
)

// RegisterTransactionRoutes wires the transaction submission endpoint.
// Redis-backed response replay and per-wallet throttling only apply
// when a cache client is configured.
func RegisterTransactionRoutes(router fiber.Router, h *transaction.Handler, d Deps) {
	handlers := []fiber.Handler{}
	if d.Cache != nil {
		handlers = append(handlers,
			middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitsPerMinute),
			middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		)
	}
	handlers = append(handlers, h.Apply)
	router.Post("/transactions", handlers...)
}
