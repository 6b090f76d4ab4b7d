package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/crypvault/wallet-api/pkg/wallet"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the ledger store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateProfile(ctx context.Context, profile *wallet.Profile) error {
	dao := toProfileDao(profile)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func (s *pgStore) GetProfile(ctx context.Context, userID uuid.UUID) (*wallet.Profile, error) {
	dao := new(ProfileDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return toProfile(dao), nil
}

func (s *pgStore) FindProfileByAddress(ctx context.Context, address string) (*wallet.Profile, error) {
	dao := new(ProfileDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("wallet_address = ?", address).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile by address: %w", err)
	}
	return toProfile(dao), nil
}

func (s *pgStore) UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) error {
	res, err := s.db.NewUpdate().
		Model((*ProfileDao)(nil)).
		Set("wallet_name = ?", name).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update wallet name: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// AdjustBalance is the sole mutator of btc_balance. The check and the write
// happen in one statement so concurrent adjustments cannot drive the balance
// negative: the WHERE guard re-evaluates against the committed row.
func (s *pgStore) AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	_, err := s.db.NewUpdate().
		Model((*ProfileDao)(nil)).
		Set("btc_balance = btc_balance + ?", delta).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("btc_balance + ? >= 0", delta).
		Returning("btc_balance").
		Exec(ctx, &newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}

	// No row matched: either the profile does not exist or the guard rejected
	// the debit. Disambiguate with a follow-up read.
	exists, existsErr := s.db.NewSelect().
		Model((*ProfileDao)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if existsErr != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", existsErr)
	}
	if !exists {
		return decimal.Zero, ErrProfileNotFound
	}
	return decimal.Zero, ErrInsufficientFunds
}

func (s *pgStore) AppendTransaction(ctx context.Context, tx *wallet.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	dao := toTransactionDao(tx)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *pgStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*wallet.Transaction, error) {
	var daos []TransactionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]*wallet.Transaction, len(daos))
	for i := range daos {
		txs[i] = toTransaction(&daos[i])
	}
	return txs, nil
}
