package reconcile

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Handler exposes the consistency check endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a reconciliation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Check runs an on-demand consistency check for a wallet.
func (h *Handler) Check(c *fiber.Ctx) error {
	report, err := h.service.Check(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":      report.WalletID,
		"stored_balance": report.StoredBalance,
		"history_sum":    report.HistorySum,
		"drift":          report.Drift,
		"consistent":     report.Consistent,
		"checked_at":     report.CheckedAt,
	})
}
