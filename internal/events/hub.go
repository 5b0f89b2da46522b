// Package events implements the Live Event Stream (C11): a best-effort
// fan-out of engine-internal occurrences to connected operator consoles
// over WebSocket. The HTTP package owns the upgrade handshake; this package
// owns the publish/subscribe fan-out so the scheduler and monitor can push
// events without importing the HTTP layer.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

const clientBufferSize = 32

// Event is one engine occurrence broadcast to every connected client.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Hub fans events out to registered client channels. A client whose buffer
// is full has its oldest pending message dropped rather than blocking the
// publisher (drop-oldest on overflow, per spec).
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Publish encodes event as JSON and fans it out to every connected client.
// Encoding failures are swallowed; they can only come from a caller passing
// an unmarshalable Payload, which is a programmer error, not a runtime one.
func (h *Hub) Publish(eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now(), Payload: payload})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}

// Register returns a new client channel and its matching Unregister func.
func (h *Hub) Register() (ch chan []byte, unregister func()) {
	ch = make(chan []byte, clientBufferSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}
