// Package server coordinates message fan-out through the Hub type: a single
// multi-producer distribution point that every accepted message passes through
// on its way to the live SSE and WebSocket subscribers.
package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// DefaultHubCapacity is the per-subscriber queue capacity used when the
// configuration does not override it.
const DefaultHubCapacity = 1024

var (
	// ErrHubClosed is returned by Receive after the hub has shut down.
	ErrHubClosed = errors.New("hub closed")
	// ErrSubscriptionClosed is returned by Receive after Close on the
	// subscription itself.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Hub distributes messages to all current subscribers. Publish never blocks:
// each subscriber owns a fixed-size ring buffer, and when a slow subscriber's
// ring fills up its oldest unread messages are dropped and counted as lag.
// Publishing with zero subscribers is a successful no-op.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscription
	capacity    int
	closed      bool
}

// NewHub creates a Hub whose subscribers each buffer up to capacity pending
// messages. A non-positive capacity falls back to DefaultHubCapacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultHubCapacity
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscription),
		capacity:    capacity,
	}
}

// Subscribe attaches a new subscriber and returns its receive handle. The
// queue starts empty: subscribers see only messages published after they
// attach, never history.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:   h,
		id:    uuid.New(),
		ring:  make([]Message, 0, 16),
		ready: make(chan struct{}, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.closed = true
		return sub
	}
	h.subscribers[sub.id] = sub
	return sub
}

// Publish enqueues the message for every current subscriber, in publish
// order per subscriber. It never blocks on a slow consumer.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subscribers {
		sub.enqueue(msg, h.capacity)
	}
}

// SubscriberCount reports how many subscriptions are currently attached.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close shuts the hub down. All pending and future Receive calls return
// ErrHubClosed and subsequent Publish calls are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs = append(subs, sub)
		delete(h.subscribers, id)
	}
	alreadyClosed := h.closed
	h.closed = true
	h.mu.Unlock()

	if alreadyClosed {
		return
	}
	for _, sub := range subs {
		sub.markClosed(ErrHubClosed)
	}
	log.Printf("Hub closed, released %d subscription(s)", len(subs))
}

// Subscription is one subscriber's receive handle. It is safe for a single
// consumer goroutine; the hub's publishers may enqueue concurrently.
type Subscription struct {
	hub *Hub
	id  uuid.UUID

	mu      sync.Mutex
	ring    []Message
	dropped uint64
	closed  bool
	err     error

	// ready carries a wake-up signal to a blocked Receive. Capacity one:
	// repeated publishes collapse into a single pending wake-up.
	ready chan struct{}
}

// ID returns the subscription's unique identity, used in log lines.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// enqueue appends msg, evicting the oldest pending message when the ring is
// at capacity, and wakes the consumer.
func (s *Subscription) enqueue(msg Message, capacity int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.ring) >= capacity {
		s.ring = s.ring[1:]
		s.dropped++
	}
	s.ring = append(s.ring, msg)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Receive blocks until the next message is available, the subscription or hub
// is closed, or ctx is done. lagged reports how many messages were dropped
// for this subscriber since the previous Receive; callers that tolerate gaps
// simply keep reading.
func (s *Subscription) Receive(ctx context.Context) (msg Message, lagged uint64, err error) {
	for {
		s.mu.Lock()
		if len(s.ring) > 0 {
			msg = s.ring[0]
			s.ring = s.ring[1:]
			lagged = s.dropped
			s.dropped = 0
			s.mu.Unlock()
			return msg, lagged, nil
		}
		if s.closed {
			err = s.err
			s.mu.Unlock()
			if err == nil {
				err = ErrSubscriptionClosed
			}
			return Message{}, 0, err
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, 0, ctx.Err()
		case <-s.ready:
		}
	}
}

// Close detaches the subscription from the hub and unblocks any pending
// Receive with ErrSubscriptionClosed. Close is idempotent.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	delete(s.hub.subscribers, s.id)
	s.hub.mu.Unlock()

	s.markClosed(ErrSubscriptionClosed)
}

func (s *Subscription) markClosed(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}
