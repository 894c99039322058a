// Package feed carries order change events from the service layer to
// realtime subscribers, either in-process or across instances via Kafka.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/metrics"
	"github.com/tapntake/api/internal/order"
)

// Event is one realtime message. Payload is an order, a list of orders for
// a snapshot, or empty for orders_cleared.
type Event struct {
	Type    string          `json:"type"`
	OrderID string          `json:"order_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OrderEvent wraps a single order.
func OrderEvent(eventType string, o order.Order) (Event, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return Event{}, fmt.Errorf("marshal order %s: %w", o.ID, err)
	}
	return Event{Type: eventType, OrderID: o.ID, Payload: data}, nil
}

// SnapshotEvent wraps the full order list sent on subscribe.
func SnapshotEvent(orders []order.Order) (Event, error) {
	if orders == nil {
		orders = []order.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return Event{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return Event{Type: enum.EventOrders, Payload: data}, nil
}

// ClearedEvent signals that every order was deleted.
func ClearedEvent() Event {
	return Event{Type: enum.EventOrdersCleared}
}

// Order decodes a single-order payload.
func (e Event) Order() (order.Order, error) {
	var o order.Order
	err := json.Unmarshal(e.Payload, &o)
	return o, err
}

// Orders decodes a snapshot payload.
func (e Event) Orders() ([]order.Order, error) {
	var orders []order.Order
	err := json.Unmarshal(e.Payload, &orders)
	return orders, err
}

// Publisher hands events to the feed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Sink receives events for delivery to connected clients.
// Satisfied by *ws.Hub.
type Sink interface {
	Deliver(ev Event)
}

// LocalPublisher delivers straight to the in-process sink. Used when the
// API runs as a single instance.
type LocalPublisher struct {
	sink    Sink
	metrics *metrics.Metrics
}

func NewLocalPublisher(sink Sink, m *metrics.Metrics) *LocalPublisher {
	return &LocalPublisher{sink: sink, metrics: m}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev Event) error {
	p.sink.Deliver(ev)
	p.metrics.EventPublished(ev.Type, nil)
	return nil
}
