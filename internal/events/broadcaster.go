// Package events fans out newly recorded superchats to live subscribers.
//
// Delivery is best effort: each subscriber has a bounded buffer and an event
// that does not fit is dropped for that subscriber only. Subscribers get no
// backlog; they see events published after Subscribe returned.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/observability"
)

// Subscription is one live stream of events.
type Subscription struct {
	ID           string
	SubscribedAt time.Time
	// C is closed when the subscription ends.
	C <-chan domain.Superchat

	ch   chan domain.Superchat
	b    *Broadcaster
	once sync.Once
}

// Close ends the subscription and releases its buffer. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.b.remove(s)
}

// Broadcaster is safe for concurrent use.
type Broadcaster struct {
	buffer int

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

// NewBroadcaster returns a hub whose subscribers buffer up to buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{buffer: buffer, subs: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber. After Close the returned
// subscription is already ended.
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan domain.Superchat, b.buffer)
	s := &Subscription{
		ID:           uuid.NewString(),
		SubscribedAt: time.Now().UTC(),
		C:            ch,
		ch:           ch,
		b:            b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(ch) })
		return s
	}
	b.subs[s.ID] = s
	observability.Subscribers.Set(float64(len(b.subs)))
	return s
}

// Unsubscribe ends the subscription with the given id, if any.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.RLock()
	s, ok := b.subs[id]
	b.mu.RUnlock()
	if ok {
		b.remove(s)
	}
}

// Publish delivers ev to every current subscriber without blocking and
// returns how many received it.
func (b *Broadcaster) Publish(ev domain.Superchat) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
			delivered++
		default:
			observability.EventsDropped.Inc()
		}
	}
	return delivered
}

// Len returns the number of open subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later Subscribe calls return ended
// subscriptions and Publish becomes a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.once.Do(func() { close(s.ch) })
		delete(b.subs, id)
	}
	observability.Subscribers.Set(0)
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.subs[s.ID]; ok && cur == s {
		delete(b.subs, s.ID)
		observability.Subscribers.Set(float64(len(b.subs)))
	}
	s.once.Do(func() { close(s.ch) })
}
