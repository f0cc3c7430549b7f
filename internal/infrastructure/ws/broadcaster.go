package ws

import (
	"context"
	"encoding/json"

	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
	"tradepost/internal/infrastructure/storage/postgres"
)

// Broadcaster feeds committed outbox messages into the hub. It implements
// postgres.OutboxHandler for the relay goroutine.
type Broadcaster struct {
	hub *Hub
}

var _ postgres.OutboxHandler = (*Broadcaster)(nil)

// NewBroadcaster creates the relay-to-hub adapter.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func (b *Broadcaster) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	b.hub.Broadcast(msg.Room, Message{
		Type:          msg.EventType,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID.String(),
		Payload:       msg.Payload,
	})
	return nil
}

var _ inventory.LowStockNotifier = (*Broadcaster)(nil)

// NotifyLowStock broadcasts the alert to the record's location room.
// Low-stock events fire after commit and bypass the outbox: losing one is
// acceptable, the next decrement re-raises it.
func (b *Broadcaster) NotifyLowStock(ctx context.Context, record *inventory.Record) {
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	b.hub.Broadcast(events.LocationRoom(record.LocationID.String()), Message{
		Type:          events.TypeLowStock,
		AggregateType: "inventory",
		AggregateID:   record.ID.String(),
		Payload:       payload,
	})
}
