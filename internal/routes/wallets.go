package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/reconcile"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet lifecycle and inspection endpoints.
func RegisterWalletRoutes(router fiber.Router, wallets *wallet.Handler, checks *reconcile.Handler) {
	group := router.Group("/wallets")
	group.Post("/", wallets.Create)
	group.Get("/:walletId", wallets.Balance)
	group.Get("/:walletId/transactions", wallets.History)
	group.Get("/:walletId/consistency", checks.Check)
}
