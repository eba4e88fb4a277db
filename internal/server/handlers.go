// Package server exposes the HTTP handlers for message submission, user
// renames, and registry queries.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// MessageHandler handles POST /message: a form-encoded message submission.
// Structurally valid messages always get a success response; whether the
// message survived the acceptance filter is only disclosed when rejection
// feedback is enabled, so spammers get no signal by default.
func (s *Server) MessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}

	msg := Message{
		Room:     r.PostFormValue("room"),
		Username: r.PostFormValue("username"),
		Message:  r.PostFormValue("message"),
		Color:    r.PostFormValue("color"),
	}
	if problem := msg.Validate(); problem != "" {
		http.Error(w, problem, http.StatusUnprocessableEntity)
		return
	}

	reason := s.Submit(msg)

	if s.cfg.RejectFeedback {
		writeJSON(w, map[string]any{
			"accepted": reason == Accepted,
			"reason":   reason.String(),
		})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UserHandler handles POST /user: renames old_username to new_username in the
// active user registry.
func (s *Server) UserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}

	oldName := r.PostFormValue("old_username")
	newName := r.PostFormValue("new_username")
	if len(newName) > MaxUsernameLen {
		http.Error(w, "username must be at most 31 characters", http.StatusUnprocessableEntity)
		return
	}

	s.store.RenameUser(oldName, newName)
	w.WriteHeader(http.StatusOK)
}

// GetUsersHandler handles GET /get_users: the active usernames as a JSON
// array. When the registry is transiently unreadable the response is 503 with
// an empty body rather than blocking the request.
func (s *Server) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, ok := s.store.TryUsers()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, users)
}

// GetRoomsHandler handles GET /get_rooms with the same contract as
// GetUsersHandler.
func (s *Server) GetRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rooms, ok := s.store.TryRooms()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rooms)
}

// MessagesHandler handles POST /messages: the history of the room named by
// the room_name form field, or 404 for a room that has never seen a message.
func (s *Server) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}

	history, ok := s.store.History(r.PostFormValue("room_name"))
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, history)
}

// HealthHandler provides a simple health check endpoint that returns server
// status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomcast server is running!")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}
