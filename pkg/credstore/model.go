package credstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PinCredentialDao is a data access object that maps directly to the 'pin_credentials' table in PostgreSQL.
type PinCredentialDao struct {
	bun.BaseModel `bun:"table:pin_credentials,alias:pc"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid"`
	PinHash       []byte    `bun:"pin_hash,notnull,type:bytea"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}
