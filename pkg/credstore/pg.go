package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the credential store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Upsert(ctx context.Context, userID uuid.UUID, pinHash []byte) error {
	dao := &PinCredentialDao{
		UserID:  userID,
		PinHash: pinHash,
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (user_id) DO UPDATE").
		Set("pin_hash = EXCLUDED.pin_hash").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	dao := new(PinCredentialDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return dao.PinHash, nil
}

func (s *pgStore) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*PinCredentialDao)(nil)).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check credential exists: %w", err)
	}
	return exists, nil
}

// Delete removes the user's credential. Removing a non-existent credential
// is not an error.
func (s *pgStore) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.NewDelete().
		Model((*PinCredentialDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
