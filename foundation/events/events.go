// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultInbox is the number of undelivered values a subscriber may hold
// before it is dropped.
const DefaultInbox = 100

// Subscription is the handle a subscriber receives values through. C is
// closed when the subscription is released, dropped or shut down.
type Subscription[T any] struct {
	ID string
	C  <-chan T
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive published values. Each value carries a version
// and only values newer than the last published one are delivered, so every
// subscriber observes versions in increasing order.
type Events[T any] struct {
	mu      sync.Mutex
	m       map[string]chan T
	inbox   int
	latest  T
	version uint64
}

// New constructs an events for registering and receiving values. The
// initial value is what the first subscribers receive on subscribe.
func New[T any](initial T, inbox int) *Events[T] {
	if inbox <= 0 {
		inbox = DefaultInbox
	}

	return &Events[T]{
		m:      make(map[string]chan T),
		inbox:  inbox,
		latest: initial,
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Subscribe.
func (evt *Events[T]) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Subscribe registers a new subscriber. The latest published value is
// already waiting in the returned channel.
func (evt *Events[T]) Subscribe() Subscription[T] {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch := make(chan T, evt.inbox)
	ch <- evt.latest

	id := uuid.NewString()
	evt.m[id] = ch

	return Subscription[T]{ID: id, C: ch}
}

// Unsubscribe closes and removes the channel that was provided by
// the call to Subscribe.
func (evt *Events[T]) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Count returns the number of active subscribers.
func (evt *Events[T]) Count() int {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	return len(evt.m)
}

// Send publishes the value to every registered channel. Send will not block
// waiting for a receiver; a subscriber whose inbox is full is dropped and
// its channel closed. Values with a version not newer than the last sent
// value are discarded and Send reports false.
func (evt *Events[T]) Send(version uint64, v T) bool {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if version <= evt.version {
		return false
	}
	evt.version = version
	evt.latest = v

	for id, ch := range evt.m {
		select {
		case ch <- v:
		default:
			delete(evt.m, id)
			close(ch)
		}
	}

	return true
}
