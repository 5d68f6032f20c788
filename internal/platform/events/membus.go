// Copyright (c) 2026 Howkings. All rights reserved.

package events

import (
	"sync"
	"time"
)

// MemBusConfig configures an in-memory event bus.
type MemBusConfig struct {
	// SubscriberBufferSize is the channel buffer size per subscriber (default: 64).
	SubscriberBufferSize int
}

// MemBus is the in-memory [Bus] implementation used by the whole client.
//
// Publishing never blocks: a subscriber whose buffer is full misses the
// event. UI-facing signals are advisory, so dropping beats deadlocking the
// operation that published.
type MemBus struct {
	mu      sync.RWMutex
	subs    map[Topic][]*memSub
	bufSize int
	closed  bool
}

// NewMemBus creates a new in-memory event bus.
func NewMemBus(config MemBusConfig) *MemBus {
	bufSize := config.SubscriberBufferSize
	if bufSize <= 0 {
		bufSize = 64
	}
	return &MemBus{
		subs:    make(map[Topic][]*memSub),
		bufSize: bufSize,
	}
}

// Publish sends an event to all subscribers of its topic.
// If the bus is closed, the event is silently dropped.
func (b *MemBus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs[event.Topic] {
		sub.send(event)
	}
}

// Subscribe registers a subscriber for the given topics.
func (b *MemBus) Subscribe(topics ...Topic) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newMemSub(b, b.bufSize)
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], sub)
	}
	return sub
}

// Close shuts down the bus and all active subscriptions.
func (b *MemBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subs = make(map[Topic][]*memSub)

	return nil
}

// remove detaches a subscription from every topic list.
func (b *MemBus) remove(target *memSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub != target {
				kept = append(kept, sub)
			}
		}
		b.subs[topic] = kept
	}
}

// memSub is an in-memory subscription.
type memSub struct {
	bus    *MemBus
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func newMemSub(bus *MemBus, bufSize int) *memSub {
	return &memSub{
		bus: bus,
		ch:  make(chan Event, bufSize),
	}
}

// Events returns the channel of events for this subscription.
func (s *memSub) Events() <-chan Event {
	return s.ch
}

// Close unsubscribes from the bus and closes the event channel.
func (s *memSub) Close() error {
	s.bus.remove(s)
	s.close()
	return nil
}

// send delivers an event without blocking; a full buffer drops the event.
func (s *memSub) send(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- event:
	default:
		// Subscriber is not keeping up; drop rather than block the publisher.
	}
}

// close marks the subscription closed and closes its channel once.
func (s *memSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
