// Package events provides the typed event bus views and routers use to
// talk to each other.
//
// Unlike a buffered broker, a Bus never drops events: Publish invokes every
// subscriber synchronously, in subscription order, on the publisher's
// goroutine. Subscribers that need to hand work to another goroutine do so
// themselves.
package events

import (
	"fmt"
	"sync"
)

// Bus is a typed, synchronous publish/subscribe channel.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []*subscription[T]
	nextID uint64
	closed bool

	// OnPanic is called when a subscriber panics. The remaining subscribers
	// still receive the event. Defaults to a no-op.
	OnPanic func(recovered any)
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || fn == nil {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, &subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current subscriber. It reports the
// number of subscribers that received the event.
func (b *Bus[T]) Publish(payload T) int {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	// Snapshot so subscribers may (un)subscribe while being called.
	subs := make([]*subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, payload)
	}
	return len(subs)
}

func (b *Bus[T]) deliver(s *subscription[T], payload T) {
	defer func() {
		if r := recover(); r != nil {
			if b.OnPanic != nil {
				b.OnPanic(fmt.Errorf("events: subscriber panic: %v", r))
			}
		}
	}()
	s.fn(payload)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscriber. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
