package broadcast

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func recvTimeout(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case data := <-sub.C():
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())
	defer b.Close()

	first := b.Subscribe()
	second := b.Subscribe()

	b.Publish(Message{Type: TypeNewImages, Timestamp: 42})

	for _, sub := range []*Subscription{first, second} {
		var msg Message
		if err := json.Unmarshal(recvTimeout(t, sub), &msg); err != nil {
			t.Fatalf("unmarshal delivered message: %v", err)
		}
		if msg.Timestamp != 42 {
			t.Errorf("expected timestamp 42, got %v", msg.Timestamp)
		}
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub.ID())
	b.Unsubscribe(sub.ID())
	b.Unsubscribe("never-registered")

	select {
	case <-sub.Done():
	default:
		t.Error("done channel should be closed after unsubscribe")
	}
	if got := b.Stats().Subscribers; got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
}

func TestUnsubscribedClientMissesLaterPublishes(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())
	defer b.Close()

	gone := b.Subscribe()
	stays := b.Subscribe()

	b.Publish(Message{Timestamp: 1})
	recvTimeout(t, gone)
	recvTimeout(t, stays)

	b.Unsubscribe(gone.ID())
	b.Publish(Message{Timestamp: 2})

	recvTimeout(t, stays)
	select {
	case data := <-gone.C():
		t.Errorf("unsubscribed client received %s", data)
	default:
	}
}

// A subscriber that never drains its buffer is removed on the publish that
// finds the buffer full; the other subscribers still get that message.
func TestSlowSubscriberIsDroppedOthersUnaffected(t *testing.T) {
	b := NewBroadcaster(1, zap.NewNop())
	defer b.Close()

	slow := b.Subscribe()
	healthy := b.Subscribe()

	b.Publish(Message{Timestamp: 1}) // fills slow's buffer
	recvTimeout(t, healthy)

	b.Publish(Message{Timestamp: 2}) // slow's buffer full: dropped

	var msg Message
	if err := json.Unmarshal(recvTimeout(t, healthy), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Timestamp != 2 {
		t.Errorf("healthy subscriber expected timestamp 2, got %v", msg.Timestamp)
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not removed")
	}

	stats := b.Stats()
	if stats.Subscribers != 1 {
		t.Errorf("expected 1 subscriber after drop, got %d", stats.Subscribers)
	}
	if stats.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", stats.Dropped)
	}
}

func TestPerSubscriberFIFOOrder(t *testing.T) {
	b := NewBroadcaster(16, zap.NewNop())
	defer b.Close()

	sub := b.Subscribe()
	for i := 1; i <= 10; i++ {
		b.Publish(Message{Timestamp: float64(i)})
	}

	for i := 1; i <= 10; i++ {
		var msg Message
		if err := json.Unmarshal(recvTimeout(t, sub), &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Timestamp != float64(i) {
			t.Fatalf("expected timestamp %d in order, got %v", i, msg.Timestamp)
		}
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())
	defer b.Close()

	b.Publish(Message{Timestamp: 1})

	stats := b.Stats()
	if stats.Published != 1 || stats.Delivered != 0 || stats.Dropped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCloseWakesSubscribersAndRejectsNew(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())

	sub := b.Subscribe()
	b.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscriber not woken by close")
	}

	late := b.Subscribe()
	select {
	case <-late.Done():
	default:
		t.Error("subscription after close should already be done")
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := NewBroadcaster(64, zap.NewNop())
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			b.Publish(Message{Timestamp: float64(i), Prompt: fmt.Sprintf("p%d", i)})
		}
	}()

	for i := 0; i < 50; i++ {
		sub := b.Subscribe()
		b.Unsubscribe(sub.ID())
	}
	<-done
}
