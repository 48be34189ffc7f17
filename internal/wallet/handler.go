package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency"`
}

type walletResponse struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Create provisions a wallet with an optional initial balance.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	wallet, err := h.service.Create(c.UserContext(), CreateInput{
		InitialBalance: req.InitialBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:        wallet.ID,
		Balance:   wallet.Balance,
		Currency:  wallet.Currency,
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt,
	})
}

// Balance returns the wallet's balance snapshot.
func (h *Handler) Balance(c *fiber.Ctx) error {
	snapshot, err := h.service.Balance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":       snapshot.WalletID,
		"balance":         snapshot.Balance,
		"currency":        snapshot.Currency,
		"last_updated_at": snapshot.LastUpdatedAt,
	})
}

// History returns a page of the wallet's transactions.
func (h *Handler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	entries, err := h.service.History(c.UserContext(), c.Params("walletId"), limit, offset)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fiber.Map{
			"id":             entry.ID,
			"external_id":    entry.ExternalID,
			"kind":           string(entry.Kind),
			"amount":         entry.Amount,
			"currency":       entry.Currency,
			"applied_amount": entry.AppliedAmount,
			"created_at":     entry.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":    c.Params("walletId"),
		"transactions": items,
	})
}
