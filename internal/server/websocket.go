// Package server exposes the WebSocket transport: an alternative to the form
// POST plus SSE pair that carries submissions and the broadcast feed over a
// single connection.
package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler handles GET /ws. It upgrades the connection, subscribes
// the client to the broadcast hub, and starts the read/write pumps. Inbound
// frames are JSON messages that go through the same acceptance pipeline as
// POST /message.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origin.check,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(conn, s, r.RemoteAddr)
	client.run()
}
