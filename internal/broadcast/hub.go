package broadcast

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
)

const defaultSubscriberBuffer = 4

// Hub fans snapshots out to in-process subscribers, such as websocket clients.
// A subscriber whose buffer is full misses the snapshot.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan models.Snapshot
	last   map[string]models.Snapshot
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int]chan models.Snapshot),
		last: make(map[string]models.Snapshot),
	}
}

// Subscribe registers a listener on topic. The most recent snapshot of the
// topic, if any, is delivered immediately.
func (h *Hub) Subscribe(topic string, buffer int) (int, <-chan models.Snapshot) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan models.Snapshot, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan models.Snapshot)
	}
	h.subs[topic][id] = ch
	last, have := h.last[topic]
	h.mu.Unlock()

	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

// Unsubscribe removes the listener and closes its channel.
func (h *Hub) Unsubscribe(topic string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subs[topic]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(h.subs, topic)
	}
}

// Subscribers returns the number of listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Publish never blocks and never fails.
func (h *Hub) Publish(topic string, snap models.Snapshot) error {
	h.mu.Lock()
	h.last[topic] = snap
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs[topic] {
		select {
		case ch <- snap:
		default:
			log.WithFields(log.Fields{
				"topic":      topic,
				"subscriber": id,
			}).Debug("Subscriber buffer full, dropping snapshot")
		}
	}
	return nil
}
