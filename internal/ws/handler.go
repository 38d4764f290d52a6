package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Awais68/school-lms-backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades an authenticated request and attaches the connection
// to the hub. Browsers cannot set headers on websocket dials, so the
// auth middleware also accepts the token as a query parameter here.
func Serve(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws: upgrade: %v", err)
			return
		}
		client := &Client{
			ID:     uuid.NewString(),
			UserID: id.UserID,
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, 256),
		}
		hub.register <- client
		go client.writePump()
		go client.readPump()
	}
}
