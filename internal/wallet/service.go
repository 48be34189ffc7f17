package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

const openingExternalIDPrefix = "opening:"

// Service exposes wallet lifecycle and read operations over the ledger store.
type Service struct {
	store     ledger.Store
	reference string
}

// NewService builds a wallet service. The reference currency is the
// unit every balance is held in.
func NewService(store ledger.Store, reference string) *Service {
	return &Service{store: store, reference: reference}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	InitialBalance decimal.Decimal
	Currency       string
}

// Snapshot is the read-side view of a wallet's balance.
type Snapshot struct {
	WalletID      string
	Balance       decimal.Decimal
	Currency      string
	LastUpdatedAt time.Time
}

// Create provisions a wallet. A positive initial balance is recorded as
// an opening deposit entry so the balance always equals the sum of the
// wallet's ledger history.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Wallet, error) {
	if input.InitialBalance.IsNegative() {
		return ledger.Wallet{}, fmt.Errorf("initial balance must not be negative")
	}

	currency := input.Currency
	if currency == "" {
		currency = s.reference
	}

	now := time.Now().UTC()
	wallet := ledger.Wallet{
		ID:        uuid.NewString(),
		Balance:   decimal.Zero,
		Currency:  currency,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertWallet(ctx, wallet); err != nil {
		return ledger.Wallet{}, err
	}

	if input.InitialBalance.IsPositive() {
		opening := ledger.Entry{
			ID:            uuid.NewString(),
			ExternalID:    openingExternalIDPrefix + wallet.ID,
			WalletID:      wallet.ID,
			Kind:          ledger.KindDeposit,
			Amount:        input.InitialBalance,
			Currency:      s.reference,
			AppliedAmount: input.InitialBalance,
			CreatedAt:     now,
		}
		if err := s.store.InsertEntryAndUpdateWallet(ctx, opening, input.InitialBalance, 0); err != nil {
			return ledger.Wallet{}, fmt.Errorf("record opening balance: %w", err)
		}
		wallet.Balance = input.InitialBalance
		wallet.Version = 1
	}

	return wallet, nil
}

// Get retrieves the current wallet row.
func (s *Service) Get(ctx context.Context, id string) (ledger.Wallet, error) {
	return s.store.FindWalletByID(ctx, id)
}

// Balance returns the wallet's balance snapshot.
func (s *Service) Balance(ctx context.Context, id string) (Snapshot, error) {
	wallet, err := s.store.FindWalletByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		WalletID:      wallet.ID,
		Balance:       wallet.Balance,
		Currency:      wallet.Currency,
		LastUpdatedAt: wallet.UpdatedAt,
	}, nil
}

// History returns a page of the wallet's ledger entries, newest first.
func (s *Service) History(ctx context.Context, id string, limit, offset int) ([]ledger.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.store.FindWalletByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEntriesByWallet(ctx, id, limit, offset)
}
