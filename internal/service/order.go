package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tapntake/api/internal/admin"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/database"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/metrics"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/payment"
)

const maxOrderIDRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrTableRequired        = errors.New("table_number is required")
	ErrInvalidPaymentMethod = errors.New("payment_method must be online or counter")
	ErrOrderIDRequired      = errors.New("id is required")
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrOrderNotFound        = errors.New("order not found")
	ErrConflict             = errors.New("order status changed, please retry")
	ErrPaymentProvider      = errors.New("payment provider unavailable")
)

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries.
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id string) (database.Order, error)
	GetOrderByStripeSession(ctx context.Context, stripeSessionID string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, id string) (database.Order, error)
	SetStripeSession(ctx context.Context, arg database.SetStripeSessionParams) (database.Order, error)
	DeleteAllOrders(ctx context.Context) (int64, error)
}

// CartSource is the part of the cart service checkout needs.
// Satisfied by *cart.Service.
type CartSource interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Clear(ctx context.Context, id string) (*cart.Cart, error)
}

// PaymentGateway opens hosted checkout sessions.
// Satisfied by *payment.StripeGateway.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, o order.Order) (payment.Session, error)
}

// CheckoutRequest is the validated input for placing an order from a cart.
type CheckoutRequest struct {
	CartID        string
	TableNumber   string
	CustomerName  string
	PaymentMethod string
}

// CheckoutResult is the placed order plus the payment redirect, if any.
type CheckoutResult struct {
	Order       order.Order
	SessionID   string
	RedirectURL string
}

// ListParams filters the order list. Status may be a single status,
// "active" for orders the kitchen still works on, or empty for all. Search
// matches the order id or customer name, case-insensitively.
type ListParams struct {
	Status string
	Search string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

var activeStatuses = []string{enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady}

// OrderService handles order business logic.
type OrderService struct {
	store    OrderStore
	carts    CartSource
	payments PaymentGateway
	events   feed.Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore, carts CartSource, payments PaymentGateway, events feed.Publisher, m *metrics.Metrics) *OrderService {
	return &OrderService{
		store:    store,
		carts:    carts,
		payments: payments,
		events:   events,
		metrics:  m,
		now:      time.Now,
	}
}

// Checkout turns a cart into an order and, for online payment, opens a
// checkout session. The cart is cleared once the order exists and any
// payment redirect was created.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	method := req.PaymentMethod
	if method == "" {
		method = enum.PaymentMethodOnline
	}
	if method != enum.PaymentMethodOnline && method != enum.PaymentMethodCounter {
		return nil, ErrInvalidPaymentMethod
	}
	table := strings.TrimSpace(req.TableNumber)
	if table == "" {
		return nil, ErrTableRequired
	}

	c, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = "Table " + table
	}
	total := c.Total()
	now := s.now()
	o := order.Order{
		Items:         c.Snapshot(),
		Total:         total,
		Status:        enum.OrderStatusPending,
		CustomerName:  name,
		TableNumber:   table,
		Timestamp:     now,
		PaymentStatus: order.InitialPaymentStatus(method, total),
		PaymentMethod: method,
	}

	created, err := s.insertWithFreshID(ctx, o, now)
	if err != nil {
		return nil, err
	}
	s.metrics.OrderCreated(method, created.Total.InexactFloat64())
	s.publish(ctx, enum.EventNewOrder, created)

	result := &CheckoutResult{Order: created}
	if created.PaymentStatus == enum.PaymentStatusPending {
		sess, err := s.payments.CreateCheckoutSession(ctx, created)
		if err != nil {
			log.Printf("ERROR: checkout session for %s: %v", created.ID, err)
			s.failPayment(ctx, created)
			return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
		}
		row, err := s.store.SetStripeSession(ctx, database.SetStripeSessionParams{
			ID:              created.ID,
			StripeSessionID: pgtype.Text{String: sess.ID, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("set stripe session: %w", err)
		}
		updated, err := orderFromRow(row)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, enum.EventOrderUpdated, updated)
		result.Order = updated
		result.SessionID = sess.ID
		result.RedirectURL = sess.URL
	}

	if _, err := s.carts.Clear(ctx, req.CartID); err != nil {
		log.Printf("ERROR: clear cart %s after checkout: %v", req.CartID, err)
	}
	return result, nil
}

func (s *OrderService) failPayment(ctx context.Context, o order.Order) {
	row, err := s.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
		ID:                    o.ID,
		PaymentStatus:         enum.PaymentStatusFailed,
		ExpectedPaymentStatus: enum.PaymentStatusPending,
	})
	if err != nil {
		log.Printf("ERROR: mark payment failed for %s: %v", o.ID, err)
		return
	}
	failed, err := orderFromRow(row)
	if err != nil {
		log.Printf("ERROR: decode order %s: %v", o.ID, err)
		return
	}
	s.metrics.PaymentChanged(enum.PaymentStatusFailed)
	s.publish(ctx, enum.EventOrderUpdated, failed)
}

// insertWithFreshID retries with a new id when the generated one collides
// (pgconn error code 23505 on the primary key).
func (s *OrderService) insertWithFreshID(ctx context.Context, o order.Order, now time.Time) (order.Order, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderIDRetries; attempt++ {
		o.ID = order.NewID(now)
		created, err := s.insert(ctx, o)
		if err == nil {
			return created, nil
		}
		if isDuplicateID(err) {
			lastErr = err
			continue
		}
		return order.Order{}, err
	}
	return order.Order{}, lastErr
}

func (s *OrderService) insert(ctx context.Context, o order.Order) (order.Order, error) {
	params, err := createParams(o)
	if err != nil {
		return order.Order{}, err
	}
	row, err := s.store.CreateOrder(ctx, params)
	if err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	return orderFromRow(row)
}

// isDuplicateID checks if the error is a unique constraint violation on the
// order id (pgconn error code 23505).
func isDuplicateID(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_pkey"
	}
	return false
}

// CreateOrder stores an order built elsewhere, such as on a staff device
// while offline. It is idempotent by id: resubmitting an existing id returns
// the stored order with created=false.
func (s *OrderService) CreateOrder(ctx context.Context, o order.Order) (order.Order, bool, error) {
	if strings.TrimSpace(o.ID) == "" {
		return order.Order{}, false, ErrOrderIDRequired
	}
	if len(o.Items) == 0 {
		return order.Order{}, false, ErrEmptyItems
	}
	for i, it := range o.Items {
		if it.Quantity <= 0 {
			return order.Order{}, false, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	if o.Status == "" {
		o.Status = enum.OrderStatusPending
	}
	if !order.IsValidStatus(o.Status) {
		return order.Order{}, false, order.ErrInvalidStatus
	}
	if o.PaymentMethod != "" && o.PaymentMethod != enum.PaymentMethodOnline && o.PaymentMethod != enum.PaymentMethodCounter {
		return order.Order{}, false, ErrInvalidPaymentMethod
	}

	o.Total = order.TotalOf(o.Items)
	if o.PaymentStatus == "" {
		o.PaymentStatus = order.InitialPaymentStatus(o.PaymentMethod, o.Total)
	}
	if !order.IsValidPaymentStatus(o.PaymentStatus) {
		return order.Order{}, false, order.ErrInvalidPaymentStatus
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = s.now()
	}
	if strings.TrimSpace(o.CustomerName) == "" && o.TableNumber != "" {
		o.CustomerName = "Table " + o.TableNumber
	}

	created, err := s.insert(ctx, o)
	if err != nil {
		if isDuplicateID(err) {
			existing, getErr := s.Get(ctx, o.ID)
			if getErr != nil {
				return order.Order{}, false, getErr
			}
			return existing, false, nil
		}
		return order.Order{}, false, err
	}
	s.metrics.OrderCreated(created.PaymentMethod, created.Total.InexactFloat64())
	s.publish(ctx, enum.EventNewOrder, created)
	return created, true, nil
}

// Get returns the order with id.
func (s *OrderService) Get(ctx context.Context, id string) (order.Order, error) {
	row, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, ErrOrderNotFound
		}
		return order.Order{}, fmt.Errorf("get order: %w", err)
	}
	return orderFromRow(row)
}

// List returns orders newest first.
func (s *OrderService) List(ctx context.Context, p ListParams) ([]order.Order, error) {
	params := database.ListOrdersParams{
		Limit:  int32(p.Limit),
		Offset: int32(p.Offset),
	}
	switch p.Status {
	case "", admin.StatusAll:
	case admin.StatusActive:
		params.Statuses = activeStatuses
	default:
		params.Statuses = []string{p.Status}
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		params.Search = pgtype.Text{String: search, Valid: true}
	}
	if !p.From.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: p.From, Valid: true}
	}
	if !p.To.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: p.To, Valid: true}
	}

	rows, err := s.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := orderFromRow(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus moves an order through the kitchen lifecycle. When
// expectedVersion is set it must match the stored version.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string, expectedVersion *int64) (order.Order, error) {
	if !order.IsValidStatus(status) {
		return order.Order{}, order.ErrInvalidStatus
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return order.Order{}, ErrConflict
	}
	if err := order.ValidateTransition(current.Status, status); err != nil {
		return order.Order{}, err
	}

	row, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:              id,
		Status:          status,
		ExpectedStatus:  current.Status,
		ExpectedVersion: current.Version,
	})
	if err != nil {
		// No rows means the order changed between read and update.
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, ErrConflict
		}
		return order.Order{}, fmt.Errorf("update order status: %w", err)
	}
	updated, err := orderFromRow(row)
	if err != nil {
		return order.Order{}, err
	}
	s.metrics.StatusChanged(status)
	s.publish(ctx, enum.EventOrderUpdated, updated)
	return updated, nil
}

// UpdatePaymentStatus applies a staff-initiated payment change, such as
// confirming a counter payment. Re-applying the current status is a no-op.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id, status string) (order.Order, error) {
	if !order.IsValidPaymentStatus(status) {
		return order.Order{}, order.ErrInvalidPaymentStatus
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if current.PaymentStatus == status {
		return current, nil
	}
	if err := order.ValidatePaymentTransition(current.PaymentStatus, status); err != nil {
		return order.Order{}, err
	}

	row, err := s.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
		ID:                    id,
		PaymentStatus:         status,
		ExpectedPaymentStatus: current.PaymentStatus,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, ErrConflict
		}
		return order.Order{}, fmt.Errorf("update payment status: %w", err)
	}
	updated, err := orderFromRow(row)
	if err != nil {
		return order.Order{}, err
	}
	s.metrics.PaymentChanged(status)
	s.publish(ctx, enum.EventOrderUpdated, updated)
	return updated, nil
}

// MarkPaid records a completed online payment. Orders are found by id, or
// by checkout session when the id is missing. Repeated deliveries return
// changed=false and publish nothing.
func (s *OrderService) MarkPaid(ctx context.Context, orderID, sessionID string) (order.Order, bool, error) {
	if orderID == "" {
		if sessionID == "" {
			return order.Order{}, false, ErrOrderNotFound
		}
		row, err := s.store.GetOrderByStripeSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.Order{}, false, ErrOrderNotFound
			}
			return order.Order{}, false, fmt.Errorf("get order by session: %w", err)
		}
		orderID = row.ID
	}

	row, err := s.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, false, fmt.Errorf("mark order paid: %w", err)
		}
		current, getErr := s.Get(ctx, orderID)
		if getErr != nil {
			return order.Order{}, false, getErr
		}
		return current, false, nil
	}
	paid, err := orderFromRow(row)
	if err != nil {
		return order.Order{}, false, err
	}
	s.metrics.PaymentChanged(enum.PaymentStatusPaid)
	s.publish(ctx, enum.EventOrderUpdated, paid)
	return paid, true, nil
}

// MarkPaymentExpired fails a still-pending online payment whose checkout
// session expired. Any other payment state is left alone.
func (s *OrderService) MarkPaymentExpired(ctx context.Context, orderID string) (order.Order, bool, error) {
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return order.Order{}, false, err
	}
	if current.PaymentStatus != enum.PaymentStatusPending {
		return current, false, nil
	}
	row, err := s.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
		ID:                    orderID,
		PaymentStatus:         enum.PaymentStatusFailed,
		ExpectedPaymentStatus: enum.PaymentStatusPending,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, err = s.Get(ctx, orderID)
			return current, false, err
		}
		return order.Order{}, false, fmt.Errorf("expire payment: %w", err)
	}
	failed, err := orderFromRow(row)
	if err != nil {
		return order.Order{}, false, err
	}
	s.metrics.PaymentChanged(enum.PaymentStatusFailed)
	s.publish(ctx, enum.EventOrderUpdated, failed)
	return failed, true, nil
}

// ClearAll deletes every order and tells subscribers to drop theirs.
func (s *OrderService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete orders: %w", err)
	}
	if err := s.events.Publish(ctx, feed.ClearedEvent()); err != nil {
		log.Printf("ERROR: publish %s: %v", enum.EventOrdersCleared, err)
	}
	return n, nil
}

// publish is best effort: the order is already stored, and subscribers
// resync from a snapshot on reconnect.
func (s *OrderService) publish(ctx context.Context, eventType string, o order.Order) {
	ev, err := feed.OrderEvent(eventType, o)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", eventType, err)
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("ERROR: publish %s for %s: %v", eventType, o.ID, err)
	}
}

func createParams(o order.Order) (database.CreateOrderParams, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return database.CreateOrderParams{}, fmt.Errorf("marshal items: %w", err)
	}
	return database.CreateOrderParams{
		ID:            o.ID,
		Items:         items,
		Total:         decimalToNumeric(o.Total),
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		TableNumber:   optionalText(o.TableNumber),
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: optionalText(o.PaymentMethod),
		CreatedAt:     pgtype.Timestamptz{Time: o.Timestamp, Valid: true},
	}, nil
}
