// Package server implements the live event stream: a Server-Sent Events
// endpoint that subscribes to the hub and forwards accepted messages to the
// client until it disconnects or the server shuts down.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventsHandler handles GET /events. Each event's payload is the JSON-encoded
// message. The stream carries no backlog: a reconnecting client starts from
// the next published message.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	sub := s.hub.Subscribe()
	defer sub.Close()

	log.Printf("Event stream opened for %s (subscription %s)", r.RemoteAddr, sub.ID())
	defer log.Printf("Event stream closed for %s", r.RemoteAddr)

	var keepAlive <-chan time.Time
	if s.cfg.SSEKeepAlive > 0 {
		ticker := time.NewTicker(s.cfg.SSEKeepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	// The stream ends on whichever comes first: client disconnect, server
	// shutdown, or a failed write. Lagged receives are skipped over
	// silently; the subscriber just resumes with the newest messages.
	msgs, errs := receiveLoop(r, sub, s)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.ctx.Done():
			return
		case <-errs:
			return
		case <-keepAlive:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg := <-msgs:
			if err := writeEvent(w, msg); err != nil {
				log.Printf("Error writing event to %s: %v", r.RemoteAddr, err)
				return
			}
			flusher.Flush()
		}
	}
}

// receiveLoop pumps the subscription into a channel so the handler can select
// over messages, keep-alives, and both cancellation signals at once.
func receiveLoop(r *http.Request, sub *Subscription, s *Server) (<-chan Message, <-chan error) {
	msgs := make(chan Message)
	errs := make(chan error, 1)

	go func() {
		for {
			msg, lagged, err := sub.Receive(r.Context())
			if err != nil {
				errs <- err
				return
			}
			if lagged > 0 {
				log.Printf("Subscriber %s lagged, skipped %d message(s)", sub.ID(), lagged)
			}
			select {
			case msgs <- msg:
			case <-r.Context().Done():
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()

	return msgs, errs
}

// writeEvent frames one message as a Server-Sent Event with a unique id line
// and a JSON data line.
func writeEvent(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\n", uuid.NewString()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return nil
}
