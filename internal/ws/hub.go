package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/metrics"
)

// AdminRoom receives every order event.
const AdminRoom = "orders"

// OrderRoom is the room of customers tracking a single order.
func OrderRoom(orderID string) string {
	return "order:" + orderID
}

// directMessage is sent to one client only, e.g. the snapshot on subscribe.
type directMessage struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan feed.Event
	direct    chan directMessage
	done      chan struct{}

	metrics *metrics.Metrics

	mu sync.RWMutex
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan feed.Event, 256),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		metrics:    m,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled,
// closing every connected client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.metrics.ConnectionOpened()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case dm := <-h.direct:
			h.mu.Lock()
			if h.rooms[dm.client.room][dm.client] {
				h.send(dm.client, dm.message)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := encode(event)
			if err != nil {
				log.Printf("ERROR: marshal %s event: %v", event.Type, err)
				continue
			}
			h.mu.Lock()
			for _, room := range h.targets(event) {
				for client := range h.rooms[room] {
					h.send(client, message)
				}
			}
			h.mu.Unlock()
		}
	}
}

// targets lists the rooms an event goes to. Caller holds mu.
func (h *Hub) targets(event feed.Event) []string {
	if event.Type == enum.EventOrdersCleared {
		rooms := make([]string, 0, len(h.rooms))
		for room := range h.rooms {
			rooms = append(rooms, room)
		}
		return rooms
	}
	rooms := []string{AdminRoom}
	if event.OrderID != "" {
		rooms = append(rooms, OrderRoom(event.OrderID))
	}
	return rooms
}

// send queues a message, dropping the client if its buffer is full.
// Caller holds mu.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.remove(client)
	}
}

// remove closes and forgets a client. Caller holds mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
	h.metrics.ConnectionClosed()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Deliver queues an event for broadcast. Satisfies feed.Sink.
func (h *Hub) Deliver(event feed.Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

// sendTo queues a message for a single registered client.
func (h *Hub) sendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// Count returns the number of clients in a room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func encode(event feed.Event) ([]byte, error) {
	return json.Marshal(event)
}
