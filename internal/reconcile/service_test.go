package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/rates"
	"github.com/nile-pay/nile_pay/internal/transaction"
)

func newEngine(t *testing.T, store ledger.Store) *transaction.Service {
	t.Helper()
	conv, err := rates.NewConverter(nil, "EGP")
	if err != nil {
		t.Fatalf("new converter: %v", err)
	}
	return transaction.NewService(store, conv, nil, transaction.WithSleep(func(context.Context, time.Duration) {}))
}

func seedWallet(t *testing.T, store ledger.Store, balance string) ledger.Wallet {
	t.Helper()
	now := time.Now().UTC()
	amount := decimal.RequireFromString(balance)
	wallet := ledger.Wallet{
		ID:        uuid.NewString(),
		Balance:   decimal.Zero,
		Currency:  "EGP",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.InsertWallet(context.Background(), wallet); err != nil {
		t.Fatalf("insert wallet: %v", err)
	}
	if amount.IsPositive() {
		entry := ledger.Entry{
			ID:            uuid.NewString(),
			ExternalID:    "seed:" + wallet.ID,
			WalletID:      wallet.ID,
			Kind:          ledger.KindDeposit,
			Amount:        amount,
			Currency:      "EGP",
			AppliedAmount: amount,
			CreatedAt:     now,
		}
		if err := store.InsertEntryAndUpdateWallet(context.Background(), entry, amount, 0); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
		wallet.Balance = amount
		wallet.Version = 1
	}
	return wallet
}

func TestCheckConsistentAfterTransactions(t *testing.T) {
	store := ledger.NewMemoryStore()
	engine := newEngine(t, store)
	checker := NewService(store)
	ctx := context.Background()
	wallet := seedWallet(t, store, "1000.00")

	for i := 0; i < 5; i++ {
		if _, err := engine.Apply(ctx, transaction.ApplyInput{
			ExternalID: fmt.Sprintf("rc-dep-%d", i),
			WalletID:   wallet.ID,
			Kind:       ledger.KindDeposit,
			Amount:     decimal.RequireFromString("13.37"),
		}); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
		if _, err := engine.Apply(ctx, transaction.ApplyInput{
			ExternalID: fmt.Sprintf("rc-wd-%d", i),
			WalletID:   wallet.ID,
			Kind:       ledger.KindWithdrawal,
			Amount:     decimal.RequireFromString("7.00"),
		}); err != nil {
			t.Fatalf("withdrawal %d: %v", i, err)
		}
	}

	report, err := checker.Check(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("expected consistent wallet, got drift %s", report.Drift)
	}
	if !report.Drift.IsZero() {
		t.Fatalf("expected zero drift, got %s", report.Drift)
	}
}

func TestCheckDetectsDrift(t *testing.T) {
	store := ledger.NewMemoryStore()
	checker := NewService(store)
	ctx := context.Background()
	wallet := seedWallet(t, store, "100.00")

	// Mutate the balance without a matching entry.
	phantom := ledger.Entry{
		ID:            uuid.NewString(),
		ExternalID:    "phantom:" + wallet.ID,
		WalletID:      wallet.ID,
		Kind:          ledger.KindDeposit,
		Amount:        decimal.RequireFromString("0.00"),
		Currency:      "EGP",
		AppliedAmount: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.InsertEntryAndUpdateWallet(ctx, phantom, decimal.RequireFromString("150.00"), 1); err != nil {
		t.Fatalf("inject drift: %v", err)
	}

	report, err := checker.Check(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistency to be detected")
	}
	if !report.Drift.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected drift 50.00, got %s", report.Drift)
	}
}

func TestCheckToleratesSubCentDrift(t *testing.T) {
	store := ledger.NewMemoryStore()
	checker := NewService(store)
	ctx := context.Background()
	wallet := seedWallet(t, store, "100.00")

	rounding := ledger.Entry{
		ID:            uuid.NewString(),
		ExternalID:    "rounding:" + wallet.ID,
		WalletID:      wallet.ID,
		Kind:          ledger.KindDeposit,
		Amount:        decimal.RequireFromString("0.009"),
		Currency:      "EGP",
		AppliedAmount: decimal.RequireFromString("0.009"),
		CreatedAt:     time.Now().UTC(),
	}
	// Store a balance that is 0.009 off the history sum.
	if err := store.InsertEntryAndUpdateWallet(ctx, rounding, decimal.RequireFromString("100.018"), 1); err != nil {
		t.Fatalf("inject rounding: %v", err)
	}

	report, err := checker.Check(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("drift below tolerance must pass, got drift %s", report.Drift)
	}
}

func TestCheckUnknownWallet(t *testing.T) {
	checker := NewService(ledger.NewMemoryStore())
	if _, err := checker.Check(context.Background(), uuid.NewString()); !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}
