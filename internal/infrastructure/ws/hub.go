// Package ws is the WebSocket event channel: a hub of connected clients
// grouped into per-location rooms, fed by the outbox relay after commit.
// Delivery is best-effort; clients reconcile by polling the HTTP API.
package ws

import (
	"context"
	"encoding/json"

	"tradepost/pkg/logger"
)

// Message is one frame delivered to subscribers.
type Message struct {
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType,omitempty"`
	AggregateID   string          `json:"aggregateId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type envelope struct {
	room string // "" = broadcast to everyone
	data []byte
}

// Hub routes messages to connected clients.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
}

// NewHub creates an idle hub; call Run to start routing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			logger.Debug(ctx, "ws client connected",
				"user_id", client.userID, "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				client.close()
				delete(h.clients, client)
				logger.Debug(ctx, "ws client disconnected",
					"user_id", client.userID, "clients", len(h.clients))
			}

		case env := <-h.broadcast:
			for client := range h.clients {
				if !client.inRoom(env.room) {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					// Slow client: drop it rather than block the hub.
					client.close()
					delete(h.clients, client)
					logger.Warn(ctx, "ws client evicted: send buffer full",
						"user_id", client.userID)
				}
			}
		}
	}
}

// Broadcast queues a message for delivery to the given room; an empty
// room reaches every client. Drops the message when the hub is saturated.
func (h *Hub) Broadcast(room string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envelope{room: room, data: data}:
	default:
	}
}
