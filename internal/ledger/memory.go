package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is a concurrency-safe in-memory Store used by tests and
// by dev mode when no database is configured. It enforces the same
// contract as the Postgres store: external id uniqueness and an atomic
// check-and-commit of (entry insert, wallet CAS write).
type MemoryStore struct {
	mu                sync.RWMutex
	wallets           map[string]Wallet
	entriesByExternal map[string]Entry
	entriesByWallet   map[string][]Entry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:           make(map[string]Wallet),
		entriesByExternal: make(map[string]Entry),
		entriesByWallet:   make(map[string][]Entry),
	}
}

// InsertWallet stores a new wallet.
func (s *MemoryStore) InsertWallet(_ context.Context, wallet Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[wallet.ID]; exists {
		return ErrWalletExists
	}
	s.wallets[wallet.ID] = wallet
	return nil
}

// FindWalletByID returns a copy of the current wallet row.
func (s *MemoryStore) FindWalletByID(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

// FindEntryByExternalID resolves an idempotency key.
func (s *MemoryStore) FindEntryByExternalID(_ context.Context, externalID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entriesByExternal[externalID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// InsertEntryAndUpdateWallet applies both writes under one lock so the
// commit is all-or-nothing, mirroring the database transaction.
func (s *MemoryStore) InsertEntryAndUpdateWallet(_ context.Context, entry Entry, newBalance decimal.Decimal, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entriesByExternal[entry.ExternalID]; exists {
		return ErrDuplicateExternalID
	}
	wallet, ok := s.wallets[entry.WalletID]
	if !ok {
		return ErrWalletNotFound
	}
	if wallet.Version != expectedVersion {
		return ErrVersionConflict
	}

	wallet.Balance = newBalance
	wallet.Version++
	wallet.UpdatedAt = time.Now().UTC()
	s.wallets[entry.WalletID] = wallet
	s.entriesByExternal[entry.ExternalID] = entry
	s.entriesByWallet[entry.WalletID] = append(s.entriesByWallet[entry.WalletID], entry)
	return nil
}

// SumAppliedAmounts totals the signed applied amounts for the wallet.
func (s *MemoryStore) SumAppliedAmounts(_ context.Context, walletID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, entry := range s.entriesByWallet[walletID] {
		sum = sum.Add(entry.AppliedAmount)
	}
	return sum, nil
}

// ListEntriesByWallet returns a page of the wallet's history, newest first.
func (s *MemoryStore) ListEntriesByWallet(_ context.Context, walletID string, limit, offset int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entriesByWallet[walletID]
	result := make([]Entry, 0, limit)
	for i := len(entries) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, entries[i])
	}
	return result, nil
}
