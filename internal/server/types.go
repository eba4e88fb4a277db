// Package server defines the message payload shared by the HTTP, SSE, and
// WebSocket surfaces.
package server

// Message is a single chat message scoped to one room. Messages are values:
// once built they are never mutated, so they can be handed to any number of
// subscribers without copy concerns.
type Message struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Color    string `json:"color"`
}

// Form field bounds enforced on submission: room 1-31 bytes, username up to
// 31, message up to 65535, color up to 23.
const (
	MinRoomLen     = 1
	MaxRoomLen     = 31
	MaxUsernameLen = 31
	MaxMessageLen  = 65535
	MaxColorLen    = 23
)

// SystemUsername is the author of synthetic history entries such as room
// welcome messages. It is also on the reserved-name denylist so clients
// cannot impersonate it.
const SystemUsername = "System"

// Validate checks the message against the form field bounds and returns a
// description of the first violation, or "" if the message is well formed.
func (m Message) Validate() string {
	if len(m.Room) < MinRoomLen || len(m.Room) > MaxRoomLen {
		return "room must be 1-31 characters"
	}
	if len(m.Username) > MaxUsernameLen {
		return "username must be at most 31 characters"
	}
	if len(m.Message) > MaxMessageLen {
		return "message must be at most 65535 characters"
	}
	if len(m.Color) > MaxColorLen {
		return "color must be at most 23 characters"
	}
	return ""
}
