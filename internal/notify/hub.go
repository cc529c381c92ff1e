package notify

import (
	"sync"
)

// subscriberBuffer bounds each subscriber's pending events. A slow
// subscriber loses events rather than blocking the poll path.
const subscriberBuffer = 16

// Hub is an in-process broadcaster. Subscribers receive events over a
// buffered channel; delivery to a full channel is dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel; it is idempotent.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers the event to every current subscriber without
// blocking.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop.
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
