package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tapntake/api/internal/auth"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/middleware"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/service"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Orders included in the admin snapshot
	snapshotLimit = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // admin feed is JWT-protected, order feed is public
	},
}

// Client represents a single WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string
	send chan []byte
}

func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ReadPump waits for the peer to disconnect. Clients never send data.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Queued messages are batched into one frame separated by newlines.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// OrderReader provides the snapshot sent on subscribe.
// Satisfied by *service.OrderService.
type OrderReader interface {
	Get(ctx context.Context, id string) (order.Order, error)
	List(ctx context.Context, p service.ListParams) ([]order.Order, error)
}

// Server upgrades realtime subscriptions and feeds them from the hub.
type Server struct {
	hub       *Hub
	orders    OrderReader
	jwtSecret string
}

func NewServer(hub *Hub, orders OrderReader, jwtSecret string) *Server {
	return &Server{hub: hub, orders: orders, jwtSecret: jwtSecret}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/ws/orders", s.ServeOrders)
	r.Get("/ws/orders/{id}", s.ServeOrder)
}

// ServeOrders streams every order change to staff.
// Endpoint: WS /api/ws/orders?token=JWT
func (s *Server) ServeOrders(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := middleware.BearerToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if _, err := auth.ValidateToken(s.jwtSecret, tokenStr); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	s.serve(w, r, AdminRoom, func(ctx context.Context) ([]order.Order, error) {
		return s.orders.List(ctx, service.ListParams{Limit: snapshotLimit})
	})
}

// ServeOrder streams changes of one order to the customer who placed it.
// Endpoint: WS /api/ws/orders/:id
func (s *Server) ServeOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.orders.Get(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: ws get order %s: %v", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.serve(w, r, OrderRoom(id), func(ctx context.Context) ([]order.Order, error) {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return []order.Order{o}, nil
	})
}

// serve upgrades, registers, then queues the snapshot. Events that arrive
// while the snapshot loads are sent first; subscribers keep the newer
// version of each order.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, room string, snapshot func(context.Context) ([]order.Order, error)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		room: room,
		send: make(chan []byte, 256),
	}
	if !s.hub.attach(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	orders, err := snapshot(r.Context())
	if err != nil {
		log.Printf("ERROR: ws snapshot for %s: %v", room, err)
		return
	}
	ev, err := feed.SnapshotEvent(orders)
	if err != nil {
		log.Printf("ERROR: ws snapshot for %s: %v", room, err)
		return
	}
	message, err := encode(ev)
	if err != nil {
		log.Printf("ERROR: ws snapshot for %s: %v", room, err)
		return
	}
	s.hub.sendTo(client, message)
}
