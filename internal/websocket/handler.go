package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs handles a websocket connection for one validated participation.
func ServeWs(hub *Hub, c *websocket.Conn, sessionId, secretKey string) {
	client := &Client{
		Hub:  hub,
		Conn: c,
		Key:  participationKey(sessionId, secretKey),
		Send: make(chan []byte, 256),
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
