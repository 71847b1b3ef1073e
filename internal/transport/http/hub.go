package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"quiz-engine/internal/domain"
)

// Hub fans session events out to the websocket connections attached to each
// session scope. It implements app.Notifier.
type Hub struct {
	mu     sync.RWMutex
	scopes map[domain.SessionKey]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{scopes: make(map[domain.SessionKey]map[*client]struct{})}
}

type client struct {
	id     string
	userID string
	send   chan []byte
}

func newClient(userID string, buffer int) *client {
	if buffer <= 0 {
		buffer = 16
	}
	return &client{id: uuid.NewString(), userID: userID, send: make(chan []byte, buffer)}
}

// enqueue never blocks: when the buffer is full the oldest message is dropped.
func (c *client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) Attach(key domain.SessionKey, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	scope, ok := h.scopes[key]
	if !ok {
		scope = make(map[*client]struct{})
		h.scopes[key] = scope
	}
	scope[c] = struct{}{}
}

func (h *Hub) Detach(key domain.SessionKey, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(key, c)
}

// DetachAll removes c from every scope. After it returns the hub no longer
// writes to c.send.
func (h *Hub) DetachAll(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key := range h.scopes {
		h.detachLocked(key, c)
	}
}

func (h *Hub) detachLocked(key domain.SessionKey, c *client) {
	scope, ok := h.scopes[key]
	if !ok {
		return
	}
	delete(scope, c)
	if len(scope) == 0 {
		delete(h.scopes, key)
	}
}

// Size returns the number of connections attached to key.
func (h *Hub) Size(key domain.SessionKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[key])
}

func (h *Hub) Publish(_ context.Context, key domain.SessionKey, e domain.Event) error {
	msg, err := json.Marshal(outboundMessage[domain.Event]{Type: e.Name(), Payload: e})
	if err != nil {
		return fmt.Errorf("hub: marshal %s: %w", e.Name(), err)
	}

	if _, ended := e.(domain.EventSessionEnded); ended {
		// the scope closes with the final broadcast
		h.mu.Lock()
		defer h.mu.Unlock()
		h.broadcastLocked(key, msg)
		delete(h.scopes, key)
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(key, msg)
	return nil
}

func (h *Hub) broadcastLocked(key domain.SessionKey, msg []byte) {
	for c := range h.scopes[key] {
		c.enqueue(msg)
	}
}
