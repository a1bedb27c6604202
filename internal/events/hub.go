package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub fans job events out to in-process subscribers keyed by message id.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[uuid.UUID]map[int]chan JobEvent
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[int]chan JobEvent)}
}

// Subscribe returns a channel that receives events for messageID. The channel
// is buffered by one since a job only ever produces one terminal event.
// Calling cancel unsubscribes and closes the channel.
func (h *Hub) Subscribe(messageID uuid.UUID) (<-chan JobEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan JobEvent, 1)
	if h.subs[messageID] == nil {
		h.subs[messageID] = make(map[int]chan JobEvent)
	}
	h.subs[messageID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[messageID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.subs, messageID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, event JobEvent) error {
	h.Deliver(event)
	return nil
}

// Deliver hands the event to local subscribers only. It is the Redis
// forwarder's callback.
func (h *Hub) Deliver(event JobEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[event.MessageID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers reports how many event streams are open across all messages.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
