package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveWithTimeout(t *testing.T, sub *Subscription) (Message, uint64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, lagged, err := sub.Receive(ctx)
	require.NoError(t, err)
	return msg, lagged
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	// A send with nobody listening is a successful no-op.
	hub.Publish(Message{Room: "lobby", Message: "into the void"})
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestSubscriberReceivesInPublishOrder(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(Message{Room: "lobby", Message: fmt.Sprintf("message %d", i)})
	}

	for i := 0; i < 5; i++ {
		msg, lagged := receiveWithTimeout(t, sub)
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Message)
		assert.Zero(t, lagged)
	}
}

func TestSubscribersSeeNoBacklog(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	hub.Publish(Message{Room: "lobby", Message: "before"})

	sub := hub.Subscribe()
	defer sub.Close()

	hub.Publish(Message{Room: "lobby", Message: "after"})

	msg, _ := receiveWithTimeout(t, sub)
	assert.Equal(t, "after", msg.Message)
}

// TestSlowSubscriberLags fills a subscriber's queue past capacity and checks
// that the oldest messages are dropped, the publisher never blocks, and the
// next receive reports the gap.
func TestSlowSubscriberLags(t *testing.T) {
	const capacity = 4

	hub := NewHub(capacity)
	defer hub.Close()

	slow := hub.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < capacity+3; i++ {
			hub.Publish(Message{Room: "lobby", Message: fmt.Sprintf("message %d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	msg, lagged := receiveWithTimeout(t, slow)
	assert.Equal(t, uint64(3), lagged)
	assert.Equal(t, "message 3", msg.Message)

	// The remaining queue is contiguous and gap-free.
	for i := capacity; i < capacity+3; i++ {
		msg, lagged := receiveWithTimeout(t, slow)
		assert.Zero(t, lagged)
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Message)
	}
}

func TestSlowSubscriberDoesNotAffectOthers(t *testing.T) {
	const capacity = 4

	hub := NewHub(capacity)
	defer hub.Close()

	slow := hub.Subscribe()
	defer slow.Close()
	fast := hub.Subscribe()
	defer fast.Close()

	for i := 0; i < capacity*2; i++ {
		hub.Publish(Message{Room: "lobby", Message: fmt.Sprintf("message %d", i)})
		msg, lagged := receiveWithTimeout(t, fast)
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Message)
		assert.Zero(t, lagged)
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := sub.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscriptionCloseUnblocksReceive(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	sub := hub.Subscribe()

	errs := make(chan error, 1)
	go func() {
		_, _, err := sub.Receive(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestHubCloseTerminatesSubscribers(t *testing.T) {
	hub := NewHub(8)

	first := hub.Subscribe()
	second := hub.Subscribe()

	errs := make(chan error, 2)
	for _, sub := range []*Subscription{first, second} {
		go func(sub *Subscription) {
			_, _, err := sub.Receive(context.Background())
			errs <- err
		}(sub)
	}

	time.Sleep(10 * time.Millisecond)
	hub.Close()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrHubClosed)
		case <-time.After(time.Second):
			t.Fatal("Receive did not return after hub shutdown")
		}
	}

	// Subscribing after shutdown yields an immediately closed handle.
	late := hub.Subscribe()
	_, _, err := late.Receive(context.Background())
	assert.Error(t, err)
}

func TestPendingMessagesDrainBeforeClose(t *testing.T) {
	hub := NewHub(8)

	sub := hub.Subscribe()
	hub.Publish(Message{Room: "lobby", Message: "last words"})
	hub.Close()

	msg, _ := receiveWithTimeout(t, sub)
	assert.Equal(t, "last words", msg.Message)

	_, _, err := sub.Receive(context.Background())
	assert.ErrorIs(t, err, ErrHubClosed)
}
