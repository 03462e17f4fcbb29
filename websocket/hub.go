package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"profeamigo/internal/revision"
	"profeamigo/services"
	"profeamigo/structs"
)

// Services are the collaborators every session is wired to.
type Services struct {
	Checker  revision.Checker
	Profiles *services.ProfileService
	Tutor    *services.Tutor
	Debounce time.Duration

	// History is registered as a listener only when set.
	History revision.Subscriber

	// AllowedOrigins limits the upgrade. Empty or "*" allows any origin.
	AllowedOrigins []string
}

// Hub tracks live sessions by socket id so HTTP handlers can reach them.
type Hub struct {
	services Services

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(svc Services) *Hub {
	return &Hub{services: svc, clients: make(map[string]*Client)}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	zap.S().Debugf("ws: client %s registered, total %d", c.ID, len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.ID] == c {
		delete(h.clients, c.ID)
	}
	zap.S().Debugf("ws: client %s unregistered, total %d", c.ID, len(h.clients))
}

// Client returns the session for socketID.
func (h *Hub) Client(socketID string) (*Client, bool) {
	if socketID == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[socketID]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EmitStatus sends an ia_status_update to socketID. Unknown ids are ignored.
func (h *Hub) EmitStatus(socketID, message string, isError bool) {
	c, ok := h.Client(socketID)
	if !ok {
		return
	}
	c.send(structs.ServerMessage{Type: structs.MsgStatus, Message: message, IsError: isError})
}

// FeedText replaces the session's input with text and checks it right away.
func (h *Hub) FeedText(socketID, text string) bool {
	c, ok := h.Client(socketID)
	if !ok {
		return false
	}
	c.send(structs.ServerMessage{Type: structs.MsgRecognized, Message: text})
	c.pipeline.CheckNow(text)
	return true
}

// CloseAll ends every session. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}
