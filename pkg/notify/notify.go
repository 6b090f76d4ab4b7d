// Package notify delivers ledger change events to interested observers.
// Delivery is best-effort and at-least-once: observers must tolerate
// duplicates and re-fetch from the ledger's pull endpoints, which remain
// the source of truth.
package notify

import "context"

// Event types
const (
	EventBalanceUpdated     = "balance_updated"
	EventTransactionCreated = "transaction_created"
)

// Event is a row-level change notification scoped to a single user.
type Event struct {
	Type    string         `json:"type"`
	UserID  string         `json:"user_id"`
	Payload map[string]any `json:"payload,omitzero"`
}

// Publisher publishes ledger change events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers a user's events to a handler until ctx is canceled.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, handler func(Event)) error
}

// NopPublisher discards all events. Used when the notification channel is
// disabled and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
