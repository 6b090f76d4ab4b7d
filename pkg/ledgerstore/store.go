package ledgerstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crypvault/wallet-api/pkg/wallet"
)

// ErrProfileNotFound is returned when a profile lookup finds no matching record.
var ErrProfileNotFound = errors.New("profile not found")

// ErrInsufficientFunds is returned when a balance adjustment would make the
// balance negative. The balance is left untouched.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrProfileExists is returned when a profile already exists for the principal.
var ErrProfileExists = errors.New("profile already exists")

// Store defines ledger persistence: profiles as the balance source of truth
// and an append-only transaction log.
type Store interface {
	CreateProfile(ctx context.Context, profile *wallet.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*wallet.Profile, error)
	FindProfileByAddress(ctx context.Context, address string) (*wallet.Profile, error)
	UpdateWalletName(ctx context.Context, userID uuid.UUID, name string) error

	// AdjustBalance applies delta to the user's balance as a single guarded
	// statement and returns the new balance. A delta that would take the
	// balance below zero fails with ErrInsufficientFunds without any write.
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)

	// AppendTransaction persists an audit record, assigning a collision-free id.
	AppendTransaction(ctx context.Context, tx *wallet.Transaction) error

	// ListTransactions returns the user's records newest first.
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*wallet.Transaction, error)
}
