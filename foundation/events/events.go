// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events. Sends never block, a subscriber that
// isn't keeping up misses values.
type Events[T any] struct {
	m  map[string]chan T
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New[T any]() *Events[T] {
	return &Events[T]{
		m: make(map[string]chan T),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events[T]) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		close(ch)
		delete(evt.m, id)
	}
}

// Acquire takes a buffer size and returns a unique id with the channel
// the caller receives values on.
func (evt *Events[T]) Acquire(buffer int) (string, <-chan T) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan T, buffer)
	evt.m[id] = ch

	return id, ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events[T]) Release(id string) error {
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

// Send signals a value to every registered channel. It returns the number
// of channels that were full and missed the value.
func (evt *Events[T]) Send(v T) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var dropped int
	for _, ch := range evt.m {
		select {
		case ch <- v:
		default:
			dropped++
		}
	}

	return dropped
}

// Len returns the number of registered channels.
func (evt *Events[T]) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
