package presence

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks connected websocket clients keyed by user id and fans
// lifecycle events out to them.
type Hub struct {
	clients    map[int]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes register/unregister requests until the channels close.
// Intended to run as a single goroutine from main.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// One connection per user; a new tab replaces the old socket.
	if old, exists := h.clients[client.userID]; exists {
		close(old.send)
		h.logger.Info("replaced existing websocket connection", zap.Int("userId", client.userID))
	}

	h.clients[client.userID] = client
	h.logger.Info("websocket client registered",
		zap.Int("userId", client.userID),
		zap.Int("totalClients", len(h.clients)))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		h.logger.Info("websocket client unregistered", zap.Int("userId", client.userID))
	}
}

// replaced reports whether another socket has taken over the client's slot.
// addClient swaps the map entry and closes the old send channel under the
// same lock, so by the time the old pumps wind down this answer is stable.
func (h *Hub) replaced(client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[client.userID] != client
}

// SendToUser delivers a message to one user's socket, dropping it when the
// client buffer is full or the user is not connected.
func (h *Hub) SendToUser(userID int, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[userID]
	if !exists {
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("websocket send buffer full, dropping message", zap.Int("userId", userID))
	}
}
