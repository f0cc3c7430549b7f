// Package events defines the typed messages broadcast after ledger mutations.
// Publishing is transactional (outbox); delivery to subscribers is best-effort
// after commit. Subscribers tolerate missed messages and reconcile by polling.
package events

import (
	"context"

	"tradepost/internal/core/id"
)

// Event type names as delivered to subscribers.
const (
	TypeAdjustmentsCreated = "adjustmentsCreated"
	TypeInventoryAdjusted  = "inventoryAdjusted"
	TypeInventoryUpdate    = "inventoryUpdate"
	TypeTransferShipped    = "transferShipped"
	TypeTransferReceived   = "transferReceived"
	TypeTransferCancelled  = "transferCancelled"
	TypePurchaseReceived   = "purchaseReceived"
	TypeSaleCompleted      = "saleCompleted"
	TypeLowStock           = "lowStock"
)

// Event is one typed broadcast message.
type Event struct {
	// AggregateType names the document family (e.g. "adjustment", "sale")
	AggregateType string

	// AggregateID is the source document
	AggregateID id.ID

	// Type is one of the Type* constants
	Type string

	// Room scopes delivery; empty means broadcast to everyone
	Room string

	// Payload is marshalled to JSON for delivery
	Payload any
}

// LocationRoom returns the room name for per-location events.
func LocationRoom(locationID string) string {
	return "location:" + locationID
}

// Publisher enqueues events within the current storage transaction.
// Events become visible to subscribers only after the transaction commits.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	PublishBatch(ctx context.Context, events []Event) error
}

// NopPublisher discards all events. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error        { return nil }
func (NopPublisher) PublishBatch(ctx context.Context, events []Event) error { return nil }
