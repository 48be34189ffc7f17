package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// PostgresStore persists wallets and ledger entries in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InsertWallet inserts a wallet row.
func (s *PostgresStore) InsertWallet(ctx context.Context, wallet Wallet) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, balance, currency, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		wallet.ID, wallet.Balance, wallet.Currency, wallet.Version, wallet.CreatedAt.UTC(), wallet.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrWalletExists
	}
	return err
}

// FindWalletByID loads the wallet row with its current version.
func (s *PostgresStore) FindWalletByID(ctx context.Context, id string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, balance, currency, version, created_at, updated_at
        FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

// FindEntryByExternalID resolves an idempotency key to its entry.
func (s *PostgresStore) FindEntryByExternalID(ctx context.Context, externalID string) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT id, external_id, wallet_id, kind, amount, currency, applied_amount, metadata, created_at
        FROM ledger_entries WHERE external_id = $1`, externalID)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return entry, err
}

// InsertEntryAndUpdateWallet commits the entry insert and the
// conditional wallet write in a single database transaction.
func (s *PostgresStore) InsertEntryAndUpdateWallet(ctx context.Context, entry Entry, newBalance decimal.Decimal, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO ledger_entries (id, external_id, wallet_id, kind, amount, currency, applied_amount, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ExternalID, entry.WalletID, string(entry.Kind), entry.Amount, entry.Currency, entry.AppliedAmount, metadata, entry.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateExternalID
	}
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, version = version + 1, updated_at = $2
        WHERE id = $3 AND version = $4`,
		newBalance, time.Now().UTC(), entry.WalletID, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return tx.Commit(ctx)
}

// SumAppliedAmounts aggregates applied amounts server-side.
func (s *PostgresStore) SumAppliedAmounts(ctx context.Context, walletID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(applied_amount), 0)
        FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return sum, nil
}

// ListEntriesByWallet returns a page of the wallet's history, newest first.
func (s *PostgresStore) ListEntriesByWallet(ctx context.Context, walletID string, limit, offset int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, external_id, wallet_id, kind, amount, currency, applied_amount, metadata, created_at
        FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var createdAt, updatedAt time.Time
	err := row.Scan(&w.ID, &w.Balance, &w.Currency, &w.Version, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var kind string
	var metadata []byte
	var createdAt time.Time
	if err := row.Scan(&e.ID, &e.ExternalID, &e.WalletID, &kind, &e.Amount, &e.Currency, &e.AppliedAmount, &metadata, &createdAt); err != nil {
		return Entry{}, err
	}
	e.Kind = Kind(kind)
	e.CreatedAt = createdAt.UTC()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return Entry{}, fmt.Errorf("decode entry metadata: %w", err)
		}
	}
	return e, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
