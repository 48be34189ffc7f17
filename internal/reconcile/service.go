package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Tolerance is the maximum absolute drift between stored balance and
// history sum still considered consistent. It absorbs independent
// rounding paths; equality is never checked exactly.
var Tolerance = decimal.RequireFromString("0.01")

// Service recomputes wallet balances from transaction history and
// compares them against the stored balance. Read-only.
type Service struct {
	store ledger.Store
}

// NewService builds a consistency checker over the store.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Report describes the outcome of a consistency check.
type Report struct {
	WalletID      string
	StoredBalance decimal.Decimal
	HistorySum    decimal.Decimal
	Drift         decimal.Decimal
	Consistent    bool
	CheckedAt     time.Time
}

// Check verifies that the wallet's stored balance matches the sum of
// the applied amounts of its ledger history.
func (s *Service) Check(ctx context.Context, walletID string) (Report, error) {
	wallet, err := s.store.FindWalletByID(ctx, walletID)
	if err != nil {
		return Report{}, err
	}
	sum, err := s.store.SumAppliedAmounts(ctx, walletID)
	if err != nil {
		return Report{}, err
	}

	drift := wallet.Balance.Sub(sum)
	return Report{
		WalletID:      wallet.ID,
		StoredBalance: wallet.Balance,
		HistorySum:    sum,
		Drift:         drift,
		Consistent:    drift.Abs().LessThan(Tolerance),
		CheckedAt:     time.Now().UTC(),
	}, nil
}
