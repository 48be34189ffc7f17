package transaction

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/rates"
)

// Handler exposes the transaction endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	ExternalID string            `json:"external_id"`
	WalletID   string            `json:"wallet_id"`
	Kind       string            `json:"kind"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata"`
}

type entryResponse struct {
	ID            string            `json:"id"`
	ExternalID    string            `json:"external_id"`
	WalletID      string            `json:"wallet_id"`
	Kind          string            `json:"kind"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	AppliedAmount decimal.Decimal   `json:"applied_amount"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Apply records a deposit or withdrawal against a wallet.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Apply(c.UserContext(), ApplyInput{
		ExternalID: req.ExternalID,
		WalletID:   req.WalletID,
		Kind:       ledger.Kind(req.Kind),
		Amount:     req.Amount,
		Currency:   req.Currency,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return mapApplyError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

func mapApplyError(c *fiber.Ctx, err error) error {
	var insufficient *ledger.InsufficientFundsError
	switch {
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, rates.ErrUnsupportedCurrency):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &insufficient):
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     "insufficient funds",
			"wallet_id": insufficient.WalletID,
			"balance":   insufficient.Balance,
			"requested": insufficient.Requested,
			"shortfall": insufficient.Shortfall(),
		})
	case errors.Is(err, ErrRetriesExhausted):
		// Transient: resubmitting with the same external id is safe.
		return fiber.NewError(http.StatusServiceUnavailable, "wallet busy, retry with the same external_id")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toEntryResponse(entry ledger.Entry) entryResponse {
	return entryResponse{
		ID:            entry.ID,
		ExternalID:    entry.ExternalID,
		WalletID:      entry.WalletID,
		Kind:          string(entry.Kind),
		Amount:        entry.Amount,
		Currency:      entry.Currency,
		AppliedAmount: entry.AppliedAmount,
		Metadata:      entry.Metadata,
		CreatedAt:     entry.CreatedAt,
	}
}
