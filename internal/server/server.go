// Package server wires the filter, store, and hub into the Server type that
// backs every transport.
package server

import (
	"context"
	"log"
)

// Server is the chat backend: it owns the shared state store and the
// broadcast hub and runs every submission through the acceptance pipeline.
// All transports (form POST, WebSocket) converge on Submit.
type Server struct {
	cfg    *Config
	store  *Store
	hub    *Hub
	origin *originChecker

	// ctx is cancelled on shutdown; streaming endpoints race it against
	// client disconnect.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer constructs a Server from the given configuration. Passing nil
// uses the defaults.
func NewServer(cfg *Config) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		store:  NewStore(cfg.DefaultRoom),
		hub:    NewHub(cfg.BroadcastBuffer),
		origin: newOriginChecker(cfg.AllowedOrigins),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Store exposes the shared state registries.
func (s *Server) Store() *Store {
	return s.store
}

// Hub exposes the broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Submit runs one message through the acceptance pipeline. The room registry
// and room history are updated for every structurally valid message; only
// messages that pass the filter are broadcast. The returned reason is
// Accepted or the first filter check that failed.
func (s *Server) Submit(msg Message) RejectReason {
	s.store.EnsureRoom(msg.Room)
	s.store.AppendHistory(msg)

	reason := checkMessage(msg)
	if reason != Accepted {
		log.Printf("Filtered message in room %q from %q: %s", msg.Room, msg.Username, reason)
		return reason
	}

	s.hub.Publish(msg)
	return Accepted
}

// Shutdown terminates all live streams and stops the hub. Safe to call more
// than once.
func (s *Server) Shutdown() {
	s.cancel()
	s.hub.Close()
}
