package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	appctx "tradepost/internal/core/context"
	"tradepost/internal/domain/events"
	"tradepost/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the bearer token middleware before the upgrade.
		return true
	},
}

// Handler upgrades an authenticated request and registers the client.
// Room membership follows the user's location access; admins and users
// without location scoping see every room.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn(c.Request.Context(), "ws upgrade failed", "error", err)
			return
		}

		var rooms map[string]struct{}
		if !user.IsAdmin && len(user.LocationIDs) > 0 {
			rooms = make(map[string]struct{}, len(user.LocationIDs))
			for _, locID := range user.LocationIDs {
				rooms[events.LocationRoom(locID)] = struct{}{}
			}
		}

		client := newClient(hub, conn, user.UserID, rooms)
		hub.register <- client
		go client.writePump()
		go client.readPump()
	}
}
