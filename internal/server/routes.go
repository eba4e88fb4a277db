// Package server wires HTTP handlers into a ServeMux for the roomcast
// application via routing helpers.
package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all application routes:
// message submission, the live event stream, the WebSocket transport, the
// registry queries, and the health check. When a static directory is
// configured it is served at the root for the bundled web client.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", s.MessageHandler)
	mux.HandleFunc("/events", s.EventsHandler)
	mux.HandleFunc("/user", s.UserHandler)
	mux.HandleFunc("/get_users", s.GetUsersHandler)
	mux.HandleFunc("/get_rooms", s.GetRoomsHandler)
	mux.HandleFunc("/messages", s.MessagesHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/healthz", HealthHandler)

	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return mux
}
