// Package broadcast fans values out to any number of subscribers. Slow
// subscribers miss values instead of blocking the publisher.
package broadcast

import (
	"sync"
	"sync/atomic"
)

type Broadcaster[T any] struct {
	subscribers map[uint64]chan T
	nextID      atomic.Uint64
	bufferSize  int
	closed      bool
	mu          sync.RWMutex
}

func New[T any](bufferSize int) *Broadcaster[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Broadcaster[T]{
		subscribers: make(map[uint64]chan T),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new subscriber. On a closed broadcaster the returned
// channel is already closed.
func (b *Broadcaster[T]) Subscribe() (uint64, <-chan T) {
	id := b.nextID.Add(1)
	ch := make(chan T, b.bufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch

	return id, ch
}

// Unsubscribe closes the subscriber's channel. It reports whether the id was
// still registered.
func (b *Broadcaster[T]) Unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[id]
	if ok {
		close(ch)
		delete(b.subscribers, id)
	}
	return ok
}

// Broadcast delivers v to every subscriber with buffer space and returns how
// many received it.
func (b *Broadcaster[T]) Broadcast(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subscribers {
		select {
		case ch <- v:
			delivered++
		default:
			// Skip slow subscribers
		}
	}
	return delivered
}

func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
