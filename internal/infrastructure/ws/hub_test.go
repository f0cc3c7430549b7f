package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("expected a message")
	}
	return Message{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientRoomMembership(t *testing.T) {
	scoped := newClient(nil, nil, "u1", map[string]struct{}{"location:a": {}})
	assert.True(t, scoped.inRoom(""), "global broadcasts reach everyone")
	assert.True(t, scoped.inRoom("location:a"))
	assert.False(t, scoped.inRoom("location:b"))

	unscoped := newClient(nil, nil, "u2", nil)
	assert.True(t, unscoped.inRoom("location:b"))
}

func TestHubBroadcastRouting(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	scoped := newClient(hub, nil, "scoped", map[string]struct{}{"location:a": {}})
	unscoped := newClient(hub, nil, "unscoped", nil)
	hub.register <- scoped
	hub.register <- unscoped

	hub.Broadcast("location:b", Message{Type: "inventoryAdjusted", AggregateID: "other"})
	hub.Broadcast("location:a", Message{Type: "inventoryAdjusted", AggregateID: "mine"})
	hub.Broadcast("", Message{Type: "saleCompleted"})

	// The unscoped client sees everything in order.
	assert.Equal(t, "other", recv(t, unscoped).AggregateID)
	assert.Equal(t, "mine", recv(t, unscoped).AggregateID)
	assert.Equal(t, "saleCompleted", recv(t, unscoped).Type)

	// The scoped client sees only its room and the global broadcast.
	assert.Equal(t, "mine", recv(t, scoped).AggregateID)
	assert.Equal(t, "saleCompleted", recv(t, scoped).Type)
	assertSilent(t, scoped)
}
