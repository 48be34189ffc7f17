package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/notification"
	"github.com/nile-pay/nile_pay/internal/rates"
)

const (
	// DefaultMaxAttempts bounds the apply-with-retry loop.
	DefaultMaxAttempts = 3
	// DefaultBackoffBase is the delay before the first retry; it doubles
	// on each subsequent one.
	DefaultBackoffBase = 100 * time.Millisecond
)

var (
	// ErrRetriesExhausted signals that every commit attempt lost the
	// optimistic race. The caller may safely resubmit with the same
	// external id.
	ErrRetriesExhausted = errors.New("transaction retries exhausted")

	// ErrInvalidInput marks requests rejected before touching the store.
	ErrInvalidInput = errors.New("invalid transaction input")
)

// SleepFunc suspends between retry attempts. Tests inject a no-op.
type SleepFunc func(ctx context.Context, d time.Duration)

// Service applies deposit/withdrawal transactions to wallets with
// exactly-once semantics. Safe for use from arbitrarily many
// concurrent callers; contention on a wallet is resolved through the
// store's compare-and-swap commit, never via in-process locks.
type Service struct {
	store       ledger.Store
	converter   *rates.Converter
	notifier    notification.Notifier
	maxAttempts int
	backoffBase time.Duration
	sleep       SleepFunc
}

// Option customizes a Service.
type Option func(*Service)

// WithRetryPolicy overrides the attempt bound and backoff base.
func WithRetryPolicy(maxAttempts int, backoffBase time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if backoffBase > 0 {
			s.backoffBase = backoffBase
		}
	}
}

// WithSleep replaces the inter-retry delay function.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewService builds a transaction service.
func NewService(store ledger.Store, converter *rates.Converter, notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		store:       store,
		converter:   converter,
		notifier:    notifier,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepWithContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyInput captures a validated transaction request.
type ApplyInput struct {
	ExternalID string
	WalletID   string
	Kind       ledger.Kind
	Amount     decimal.Decimal
	Currency   string
	Metadata   map[string]string
}

// Apply records the transaction exactly once and returns the stored
// entry. Resubmissions with a known external id return the original
// entry without touching the wallet.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (ledger.Entry, error) {
	if err := validateInput(input); err != nil {
		return ledger.Entry{}, err
	}

	existing, err := s.store.FindEntryByExternalID(ctx, input.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrEntryNotFound) {
		return ledger.Entry{}, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		entry, err := s.attempt(ctx, input)
		switch {
		case err == nil:
			s.notify(ctx, entry)
			return entry, nil
		case errors.Is(err, ledger.ErrDuplicateExternalID):
			// Lost the uniqueness race: another caller created the
			// entry between our lookup and commit. Return theirs.
			return s.store.FindEntryByExternalID(ctx, input.ExternalID)
		case errors.Is(err, ledger.ErrVersionConflict):
			if attempt < s.maxAttempts {
				s.sleep(ctx, s.backoffBase<<(attempt-1))
			}
		default:
			return ledger.Entry{}, err
		}
	}

	return ledger.Entry{}, fmt.Errorf("%w: wallet %s after %d attempts", ErrRetriesExhausted, input.WalletID, s.maxAttempts)
}

// attempt runs one load-compute-commit cycle. The insufficient-funds
// check runs against the freshly loaded balance on every attempt, so a
// retry never reasons about a balance that has since changed.
func (s *Service) attempt(ctx context.Context, input ApplyInput) (ledger.Entry, error) {
	wallet, err := s.store.FindWalletByID(ctx, input.WalletID)
	if err != nil {
		return ledger.Entry{}, err
	}

	normalized, err := s.converter.ToReference(input.Amount, input.Currency)
	if err != nil {
		return ledger.Entry{}, err
	}

	applied := normalized
	if input.Kind == ledger.KindWithdrawal {
		applied = normalized.Neg()
	}

	prospective := wallet.Balance.Add(applied)
	if prospective.IsNegative() {
		return ledger.Entry{}, &ledger.InsufficientFundsError{
			WalletID:  wallet.ID,
			Balance:   wallet.Balance,
			Requested: normalized,
		}
	}

	entry := ledger.Entry{
		ID:            uuid.NewString(),
		ExternalID:    input.ExternalID,
		WalletID:      wallet.ID,
		Kind:          input.Kind,
		Amount:        input.Amount,
		Currency:      resolvedCurrency(input.Currency, s.converter.Reference()),
		AppliedAmount: applied,
		Metadata:      input.Metadata,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.InsertEntryAndUpdateWallet(ctx, entry, prospective, wallet.Version); err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

func (s *Service) notify(ctx context.Context, entry ledger.Entry) {
	if s.notifier == nil {
		return
	}
	kind := notification.KindDepositApplied
	if entry.Kind == ledger.KindWithdrawal {
		kind = notification.KindWithdrawalApplied
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: entry.WalletID,
		Body:        fmt.Sprintf("transaction %s applied %s to wallet %s", entry.ExternalID, entry.AppliedAmount, entry.WalletID),
	})
}

func validateInput(input ApplyInput) error {
	if input.ExternalID == "" {
		return fmt.Errorf("%w: external id is required", ErrInvalidInput)
	}
	if input.WalletID == "" {
		return fmt.Errorf("%w: wallet id is required", ErrInvalidInput)
	}
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: kind must be %s or %s", ErrInvalidInput, ledger.KindDeposit, ledger.KindWithdrawal)
	}
	if !input.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}

func resolvedCurrency(requested, reference string) string {
	if requested == "" {
		return reference
	}
	return requested
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
