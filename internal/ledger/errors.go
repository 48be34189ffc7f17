package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound occurs when the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrEntryNotFound occurs when no entry matches the lookup key.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrWalletExists occurs when inserting a wallet whose id is taken.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrVersionConflict indicates the wallet was mutated by another
	// writer between load and commit. Recoverable by retrying against a
	// freshly loaded wallet.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrDuplicateExternalID indicates the entry's external id lost a
	// uniqueness race on insert. Callers recover by re-reading the
	// winning entry; this is never surfaced to API clients.
	ErrDuplicateExternalID = errors.New("duplicate external id")

	// ErrInsufficientFunds occurs when a withdrawal would drive the
	// balance negative. Matchable via errors.Is against
	// InsufficientFundsError values.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// InsufficientFundsError carries the balance context of a rejected
// withdrawal so the transport layer can report the shortfall.
type InsufficientFundsError struct {
	WalletID  string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

// Error renders the rejection with its amounts.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on wallet %s: balance %s, requested %s", e.WalletID, e.Balance, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientFunds) match.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall returns how much the requested magnitude exceeds the balance.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Balance)
}
