package app

import (
	"sync"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

const subscriberBuffer = 64

// EventHub fans queue events out to subscribers.
// A subscriber whose buffer is full misses events instead of blocking publishers.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.QueueEvent
	nextID int
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan domain.QueueEvent)}
}

// Subscribe registers a subscriber. Call the returned func to unsubscribe;
// it closes the channel.
func (h *EventHub) Subscribe() (<-chan domain.QueueEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan domain.QueueEvent, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber with room in its buffer
func (h *EventHub) Publish(event domain.QueueEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
