package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported transaction directions.
type Kind string

const (
	// KindDeposit increases the wallet balance.
	KindDeposit Kind = "DEPOSIT"
	// KindWithdrawal decreases the wallet balance.
	KindWithdrawal Kind = "WITHDRAWAL"
)

// Valid reports whether the kind is one of the supported values.
func (k Kind) Valid() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Wallet is the versioned balance record for a single account. The
// balance is always held in the reference currency; the currency field
// is display-only and fixed at creation. Version changes on every
// successful balance mutation and is the sole concurrency signal.
type Wallet struct {
	ID        string
	Balance   decimal.Decimal
	Currency  string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one immutable line of the append-only transaction history.
// Amount and Currency preserve the caller-supplied values verbatim for
// audit; AppliedAmount is the signed reference-currency impact that was
// actually applied to the wallet and is what reconciliation sums.
type Entry struct {
	ID            string
	ExternalID    string
	WalletID      string
	Kind          Kind
	Amount        decimal.Decimal
	Currency      string
	AppliedAmount decimal.Decimal
	Metadata      map[string]string
	CreatedAt     time.Time
}
