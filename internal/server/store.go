// Package server maintains the shared chat registries: active usernames,
// known rooms, and per-room message history. Each registry is guarded by its
// own RWMutex so contention on one never stalls the others.
package server

import (
	"sync"
	"time"
)

// tryReadAttempts and tryReadBackoff bound the optimistic read path used by
// the query endpoints. If the lock cannot be taken after the retries the
// caller reports the registry as temporarily unavailable instead of blocking
// the request.
const (
	tryReadAttempts = 3
	tryReadBackoff  = time.Millisecond
)

// Store owns all process-scoped chat state. All state lives for the lifetime
// of the process and is discarded on shutdown; persistence is out of scope.
//
// Mutating operations take the relevant write lock for the full update, so
// concurrent callers never lose updates or insert duplicates. Snapshot reads
// return defensive copies and may run concurrently with each other.
type Store struct {
	usersMu sync.RWMutex
	users   []string

	roomsMu sync.RWMutex
	rooms   []string

	historyMu sync.RWMutex
	history   map[string][]Message
}

// NewStore creates a Store seeded with defaultRoom in the room registry.
func NewStore(defaultRoom string) *Store {
	return &Store{
		rooms:   []string{defaultRoom},
		history: make(map[string][]Message),
	}
}

// EnsureRoom registers a room name if it is not already known. Idempotent.
func (s *Store) EnsureRoom(name string) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	for _, room := range s.rooms {
		if room == name {
			return
		}
	}
	s.rooms = append(s.rooms, name)
}

// AppendHistory records a message in its room's history. The first message to
// a room seeds the history with a system welcome entry before the real
// message is appended.
func (s *Store) AppendHistory(msg Message) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	room := msg.Room
	if _, ok := s.history[room]; !ok {
		s.history[room] = []Message{{
			Room:     room,
			Username: SystemUsername,
			Message:  "Welcome to " + room,
			Color:    "hash",
		}}
	}
	s.history[room] = append(s.history[room], msg)
}

// RenameUser replaces the first registry entry equal to old with new,
// preserving insertion order by removing old and appending new. If old is not
// present, new is simply appended. Renaming a user to their current name is a
// no-op, and a rename never introduces a duplicate entry: when new is already
// registered, old is removed and the existing entry stands.
func (s *Store) RenameUser(oldName, newName string) {
	if oldName == newName {
		return
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	for i, user := range s.users {
		if user == oldName {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	for _, user := range s.users {
		if user == newName {
			return
		}
	}
	s.users = append(s.users, newName)
}

// Users returns a copy of the active username list in display order.
func (s *Store) Users() []string {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	return append(make([]string, 0, len(s.users)), s.users...)
}

// Rooms returns a copy of the known room names in registration order.
func (s *Store) Rooms() []string {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	return append(make([]string, 0, len(s.rooms)), s.rooms...)
}

// History returns a copy of the room's message history. ok is false when the
// room has never received a message.
func (s *Store) History(room string) (msgs []Message, ok bool) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	history, ok := s.history[room]
	if !ok {
		return nil, false
	}
	return append([]Message(nil), history...), true
}

// TryUsers is the bounded-wait variant of Users for request paths that must
// not block on a contended registry. ok is false if the read lock could not
// be taken within the retry budget.
func (s *Store) TryUsers() (users []string, ok bool) {
	if !tryRLock(&s.usersMu) {
		return nil, false
	}
	defer s.usersMu.RUnlock()
	return append(make([]string, 0, len(s.users)), s.users...), true
}

// TryRooms is the bounded-wait variant of Rooms.
func (s *Store) TryRooms() (rooms []string, ok bool) {
	if !tryRLock(&s.roomsMu) {
		return nil, false
	}
	defer s.roomsMu.RUnlock()
	return append(make([]string, 0, len(s.rooms)), s.rooms...), true
}

// tryRLock attempts the read lock a few times with a short backoff instead of
// spinning indefinitely under write contention.
func tryRLock(mu *sync.RWMutex) bool {
	for attempt := 0; ; attempt++ {
		if mu.TryRLock() {
			return true
		}
		if attempt >= tryReadAttempts-1 {
			return false
		}
		time.Sleep(tryReadBackoff << attempt)
	}
}
