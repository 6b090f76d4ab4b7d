// Package credstore persists the secondary PIN credential, one per user.
// It stores only the salted hash, never the PIN itself. Hashing and
// verification live in the PIN gate service; this package is persistence only.
package credstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned when no credential exists for the user.
var ErrCredentialNotFound = errors.New("credential not found")

// Store defines PIN credential persistence. At most one credential exists
// per user; Upsert replaces, Delete is idempotent.
type Store interface {
	Upsert(ctx context.Context, userID uuid.UUID, pinHash []byte) error
	Get(ctx context.Context, userID uuid.UUID) ([]byte, error)
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}
