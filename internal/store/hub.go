package store

import "sync"

// DefaultBuffer is the channel buffer size used by [Hub.Subscribe].
const DefaultBuffer = 100

// Hub fans out values to any number of subscribers.
//
// The zero value is ready for use. Publish never blocks: if a subscriber's
// buffer is full the value is dropped for that subscriber only.
type Hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
	closed      bool
}

// Subscribe registers a new subscriber and returns its channel.
//
// Caller must call [Hub.Unsubscribe] when done to prevent resource leaks.
// Subscribing to a closed hub returns an already-closed channel.
func (h *Hub[T]) Subscribe() <-chan T {
	ch := make(chan T, DefaultBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	if h.subscribers == nil {
		h.subscribers = make(map[chan T]struct{})
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (h *Hub[T]) Unsubscribe(ch <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subCh := range h.subscribers {
		if subCh == ch {
			delete(h.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Publish sends v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			// subscriber is slow, drop the value
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel and later publishes are no-ops.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
