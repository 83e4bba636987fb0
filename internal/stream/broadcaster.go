package stream

import (
	"sync"
)

const DefaultBuffer = 64

// Broadcaster fans every published value out to all current subscribers.
// There is no replay. Publish never blocks: when a subscriber's buffer is
// full its oldest value is dropped to make room.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool

	// OnDrop is called once per value dropped for a slow subscriber.
	OnDrop func()
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[uint64]chan T),
	}
}

// Subscribe returns a channel receiving values published from now on and a
// func that unsubscribes and closes the channel. The func is safe to call twice.
func (b *Broadcaster[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// full: drop the oldest value, then retry once
		select {
		case <-ch:
			b.dropped()
		default:
		}
		select {
		case ch <- v:
		default:
			b.dropped()
		}
	}
}

func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscribers get a closed channel.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broadcaster[T]) dropped() {
	if b.OnDrop != nil {
		b.OnDrop()
	}
}
