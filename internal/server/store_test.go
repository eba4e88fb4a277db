package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSeedsDefaultRoom(t *testing.T) {
	store := NewStore("lobby")
	assert.Equal(t, []string{"lobby"}, store.Rooms())
}

func TestEnsureRoomIdempotent(t *testing.T) {
	store := NewStore("lobby")

	store.EnsureRoom("general")
	store.EnsureRoom("general")
	store.EnsureRoom("lobby")

	assert.Equal(t, []string{"lobby", "general"}, store.Rooms())
}

func TestEnsureRoomExactMatch(t *testing.T) {
	store := NewStore("lobby")

	// "lo" is a prefix of "lobby" but still a distinct room.
	store.EnsureRoom("lo")

	assert.Equal(t, []string{"lobby", "lo"}, store.Rooms())
}

func TestAppendHistorySeedsWelcome(t *testing.T) {
	store := NewStore("lobby")
	msg := Message{Room: "lobby", Username: "alice", Message: "hello there", Color: "red"}

	store.AppendHistory(msg)

	history, ok := store.History("lobby")
	require.True(t, ok)
	require.Len(t, history, 2)
	assert.Equal(t, SystemUsername, history[0].Username)
	assert.Equal(t, "Welcome to lobby", history[0].Message)
	assert.Equal(t, "hash", history[0].Color)
	assert.Equal(t, msg, history[1])
}

func TestHistoryUnknownRoom(t *testing.T) {
	store := NewStore("lobby")

	_, ok := store.History("nowhere")
	assert.False(t, ok)

	// The seeded default room has no history until someone speaks in it.
	_, ok = store.History("lobby")
	assert.False(t, ok)
}

func TestHistoryExactRoomKeys(t *testing.T) {
	store := NewStore("lobby")
	store.AppendHistory(Message{Room: "lobby", Username: "alice", Message: "hi"})

	// A differently named room must not match another room's history.
	_, ok := store.History("lo")
	assert.False(t, ok)
}

func TestRenameUser(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		old     string
		new     string
		want    []string
	}{
		{
			name:    "rename to same name is a no-op",
			initial: []string{"alice"},
			old:     "alice",
			new:     "alice",
			want:    []string{"alice"},
		},
		{
			name:    "existing user is replaced",
			initial: []string{"alice", "carol"},
			old:     "alice",
			new:     "bob",
			want:    []string{"carol", "bob"},
		},
		{
			name:    "unknown old name appends the new one",
			initial: []string{"carol"},
			old:     "nobody",
			new:     "dave",
			want:    []string{"carol", "dave"},
		},
		{
			name:    "first registration has empty old name",
			initial: nil,
			old:     "",
			new:     "alice",
			want:    []string{"alice"},
		},
		{
			name:    "rename onto an existing name does not duplicate it",
			initial: []string{"alice", "bob"},
			old:     "alice",
			new:     "bob",
			want:    []string{"bob"},
		},
		{
			name:    "re-registering an active name is a no-op",
			initial: []string{"alice", "bob"},
			old:     "",
			new:     "bob",
			want:    []string{"alice", "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore("lobby")
			for _, user := range tt.initial {
				store.RenameUser("", user)
			}

			store.RenameUser(tt.old, tt.new)

			assert.Equal(t, tt.want, store.Users())
		})
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	store := NewStore("lobby")
	store.RenameUser("", "alice")

	users := store.Users()
	users[0] = "mallory"

	assert.Equal(t, []string{"alice"}, store.Users())
}

func TestTryReadsSucceedUncontended(t *testing.T) {
	store := NewStore("lobby")
	store.RenameUser("", "alice")

	users, ok := store.TryUsers()
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, users)

	rooms, ok := store.TryRooms()
	require.True(t, ok)
	assert.Equal(t, []string{"lobby"}, rooms)
}

// TestTryReadsFailUnderWriteContention pins the bounded-wait contract: while
// a writer holds a registry lock, the optimistic readers give up instead of
// blocking.
func TestTryReadsFailUnderWriteContention(t *testing.T) {
	store := NewStore("lobby")

	store.usersMu.Lock()
	_, ok := store.TryUsers()
	store.usersMu.Unlock()
	assert.False(t, ok)

	store.roomsMu.Lock()
	_, ok = store.TryRooms()
	store.roomsMu.Unlock()
	assert.False(t, ok)
}

// TestConcurrentHistoryAppends checks that no append is lost or duplicated
// under contention: N writers leave exactly N+1 entries (welcome included).
func TestConcurrentHistoryAppends(t *testing.T) {
	const writers = 64

	store := NewStore("lobby")
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AppendHistory(Message{
				Room:     "lobby",
				Username: "alice",
				Message:  fmt.Sprintf("message %d", i),
			})
		}(i)
	}
	wg.Wait()

	history, ok := store.History("lobby")
	require.True(t, ok)
	assert.Len(t, history, writers+1)
	assert.Equal(t, SystemUsername, history[0].Username)

	seen := make(map[string]bool, writers)
	for _, msg := range history[1:] {
		assert.False(t, seen[msg.Message], "duplicate entry %q", msg.Message)
		seen[msg.Message] = true
	}
}

func TestConcurrentRoomRegistration(t *testing.T) {
	const workers = 32

	store := NewStore("lobby")
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.EnsureRoom("general")
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"lobby", "general"}, store.Rooms())
}
