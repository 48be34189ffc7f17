package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the durable persistence contract behind the transaction
// engine. Implementations must guarantee a global uniqueness constraint
// on entry external ids and an atomic commit of the entry insert plus
// the wallet update: either both persist or neither does.
type Store interface {
	// InsertWallet persists a new wallet row. Fails with ErrWalletExists
	// when the id is already taken.
	InsertWallet(ctx context.Context, wallet Wallet) error

	// FindWalletByID loads the current wallet row, including its
	// version. Fails with ErrWalletNotFound.
	FindWalletByID(ctx context.Context, id string) (Wallet, error)

	// FindEntryByExternalID resolves an idempotency key to its entry.
	// Fails with ErrEntryNotFound when the key is unused.
	FindEntryByExternalID(ctx context.Context, externalID string) (Entry, error)

	// InsertEntryAndUpdateWallet atomically appends the entry and writes
	// the wallet balance, conditioned on the wallet version still being
	// expectedVersion (compare-and-swap; the version is incremented on
	// success). Fails with ErrVersionConflict when the condition does
	// not hold and with ErrDuplicateExternalID when the entry loses a
	// uniqueness race; in both cases no partial state survives.
	InsertEntryAndUpdateWallet(ctx context.Context, entry Entry, newBalance decimal.Decimal, expectedVersion int64) error

	// SumAppliedAmounts aggregates the signed applied amounts of every
	// entry belonging to the wallet, store-side.
	SumAppliedAmounts(ctx context.Context, walletID string) (decimal.Decimal, error)

	// ListEntriesByWallet returns the wallet's entries, newest first.
	ListEntriesByWallet(ctx context.Context, walletID string, limit, offset int) ([]Entry, error)
}
