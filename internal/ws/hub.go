package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/metrics"
)

// roomMessage is an internal struct for routing a payload to one topic room
type roomMessage struct {
	room string
	data []byte
}

// Hub maintains the set of active clients and fans invalidation events out
// to the topic rooms they subscribed to.
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan roomMessage

	// Closed when Run returns
	done chan struct{}

	logger  *zap.Logger
	metrics *metrics.Metrics

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance. m may be nil.
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run owns the room maps until ctx is canceled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()
			h.metrics.ClientConnected()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.room] {
				select {
				case client.send <- msg.data:
				default:
					// Send buffer is full; the client will refetch on reconnect
					h.logger.Warn("dropping slow websocket client", zap.String("room", msg.room))
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from every room it joined. Caller holds mu.
func (h *Hub) drop(client *Client) {
	removed := false
	for _, topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok || !clients[client] {
			continue
		}
		delete(clients, client)
		removed = true
		// Clean up empty rooms
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if removed {
		close(client.send)
		h.metrics.ClientDisconnected()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*Client]bool)
	for _, clients := range h.rooms {
		for client := range clients {
			seen[client] = true
		}
	}
	for client := range seen {
		h.drop(client)
	}
}

// Broadcast sends msg to all clients subscribed to room. After Run has
// returned the message is discarded.
func (h *Hub) Broadcast(room string, msg []byte) {
	select {
	case h.broadcast <- roomMessage{room: room, data: msg}:
	case <-h.done:
	}
}

// Clients returns the number of clients subscribed to room.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
