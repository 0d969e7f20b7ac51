// Package broadcast fans each accepted payload out to every live streaming
// subscriber. Delivery is best-effort: a subscriber that cannot keep up is
// removed rather than allowed to block the publisher.
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subscription is one registered streaming consumer. The broadcaster writes
// marshaled messages to the data channel; the done channel closes when the
// subscription is removed, for any reason.
type Subscription struct {
	id     string
	dataCh chan []byte
	doneCh chan struct{}
}

// ID returns the subscription identity, usable for Unsubscribe.
func (s *Subscription) ID() string { return s.id }

// C returns the outbound message channel.
func (s *Subscription) C() <-chan []byte { return s.dataCh }

// Done closes when the subscription has been removed.
func (s *Subscription) Done() <-chan struct{} { return s.doneCh }

// Stats are cumulative broadcaster counters since process start.
type Stats struct {
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Broadcaster maintains the subscriber registry and fans messages out to it.
//
// Backpressure policy: each subscriber gets a bounded buffer; an enqueue that
// finds the buffer full counts as a delivery failure and removes the
// subscriber on that single failed attempt. Publish therefore never blocks
// on a slow consumer, and healthy subscribers see per-subscriber FIFO order.
type Broadcaster struct {
	buffer int
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool

	published uint64
	delivered uint64
	dropped   uint64
}

// NewBroadcaster creates a broadcaster whose subscribers buffer up to buffer
// messages each.
func NewBroadcaster(buffer int, logger *zap.Logger) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		buffer: buffer,
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers a new subscriber and returns its handle. Subscribing
// to a closed broadcaster returns a handle that is already done.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		dataCh: make(chan []byte, b.buffer),
		doneCh: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.doneCh)
		return sub
	}
	b.subs[sub.id] = sub
	n := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber registered",
		zap.String("id", sub.id),
		zap.Int("subscribers", n),
	)
	return sub
}

// Unsubscribe removes a subscriber. Removing an unknown or already-removed
// id is a no-op. The registry map is the membership source of truth; the
// data channel is never closed, so a publish racing with removal writes into
// a buffer nobody reads instead of panicking.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(sub.doneCh)
	}
	n := len(b.subs)
	b.mu.Unlock()

	if ok {
		b.logger.Debug("subscriber removed",
			zap.String("id", id),
			zap.Int("subscribers", n),
		)
	}
}

// Publish marshals msg once and enqueues it to every current subscriber.
// Subscribers whose buffers are full are dropped; delivery to the rest is
// unaffected. Publish never fails and never blocks on a subscriber.
func (b *Broadcaster) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		// Message fields are all marshalable types; this would be a
		// programming error, not a runtime condition.
		b.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	var failed []string
	delivered := 0
	for _, sub := range subs {
		select {
		case sub.dataCh <- data:
			delivered++
		default:
			failed = append(failed, sub.id)
		}
	}

	b.mu.Lock()
	b.published++
	b.delivered += uint64(delivered)
	b.dropped += uint64(len(failed))
	b.mu.Unlock()

	for _, id := range failed {
		b.logger.Warn("subscriber buffer full, dropping subscriber",
			zap.String("id", id),
		)
		b.Unsubscribe(id)
	}
}

// Stats returns the current counters and subscriber count.
func (b *Broadcaster) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Published:   b.published,
		Delivered:   b.delivered,
		Dropped:     b.dropped,
		Subscribers: len(b.subs),
	}
}

// Close removes every subscriber and rejects future registrations. Used at
// server shutdown so streaming handlers unblock promptly.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.doneCh)
	}
	b.logger.Info("broadcaster closed", zap.Int("subscribers", len(subs)))
}
