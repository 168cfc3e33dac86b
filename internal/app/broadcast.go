package app

import "sync"

const subscriberBuffer = 8

// broadcaster fans values out to subscribers without ever blocking the publisher.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// subscribe registers a buffered channel, optionally primed with an initial value.
// The caller must invoke the returned cancel function to avoid leaks.
func (b *broadcaster[T]) subscribe(initial *T) (<-chan T, func()) {
	ch := make(chan T, subscriberBuffer)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan T]struct{})
	}
	b.subs[ch] = struct{}{}
	if initial != nil {
		ch <- *initial
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Slow subscriber: drop its oldest value so the newest one always lands.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (b *broadcaster[T]) empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs) == 0
}

// Hub is an in-process publish/subscribe channel keyed by topic.
// It replaces polling a storage location for results that arrive asynchronously.
type Hub[T any] struct {
	mu     sync.Mutex
	topics map[string]*broadcaster[T]
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{topics: make(map[string]*broadcaster[T])}
}

// Subscribe listens on topic until cancel is called. Values published before
// subscribing are not replayed.
func (h *Hub[T]) Subscribe(topic string) (<-chan T, func()) {
	h.mu.Lock()
	b, ok := h.topics[topic]
	if !ok {
		b = &broadcaster[T]{}
		h.topics[topic] = b
	}
	ch, cancel := b.subscribe(nil)
	h.mu.Unlock()

	return ch, func() {
		cancel()
		h.mu.Lock()
		if h.topics[topic] == b && b.empty() {
			delete(h.topics, topic)
		}
		h.mu.Unlock()
	}
}

// Publish delivers v to the current subscribers of topic.
func (h *Hub[T]) Publish(topic string, v T) {
	h.mu.Lock()
	b, ok := h.topics[topic]
	h.mu.Unlock()
	if ok {
		b.publish(v)
	}
}
