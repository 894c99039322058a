package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tapntake/api/internal/admin"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/middleware"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/service"
)

const maxListLimit = 1000

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, bool, error)
	Get(ctx context.Context, id string) (order.Order, error)
	List(ctx context.Context, p service.ListParams) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id, status string, expectedVersion *int64) (order.Order, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) (order.Order, error)
	ClearAll(ctx context.Context) (int64, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	loc *time.Location
}

// NewOrderHandler creates a new OrderHandler. Dates in queries are calendar
// days in loc.
func NewOrderHandler(svc OrderServicer, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, loc: loc}
}

// RegisterPublicRoutes registers the customer-facing order status endpoint.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/orders/{id}", h.Get)
}

// RegisterRoutes registers staff endpoints. Expected to be mounted behind
// middleware.Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Post("/orders", h.Create)
	r.Put("/orders/{id}/status", h.UpdateStatus)
	r.Put("/orders/{id}/payment", h.UpdatePayment)
	r.With(middleware.RequireAdmin()).Delete("/orders", h.ClearAll)
	r.Get("/admin/summary", h.Summary)
}

// --- Request / Response types ---

type orderListResponse struct {
	Orders []order.Order `json:"orders"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type updateStatusRequest struct {
	Status          string `json:"status"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// --- Handlers ---

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// List handles GET /orders. The status filter accepts "all", "active" or a
// specific status; search matches id or customer name.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := maxListLimit
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := service.ListParams{Limit: limit, Offset: offset, Search: q.Get("search")}
	status := q.Get("status")
	switch status {
	case "", admin.StatusAll, admin.StatusActive:
	default:
		if !order.IsValidStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
	}
	params.Status = status

	if s := q.Get("date"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		params.From = d
		params.To = d.AddDate(0, 0, 1)
	}

	orders, err := h.svc.List(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	admin.SortNewestFirst(orders)

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: orders,
		Limit:  limit,
		Offset: offset,
	})
}

// Create handles POST /orders: a staff device pushing an order it created
// while offline. Replaying the same id returns the stored order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req order.Order
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, created, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, o)
}

// UpdateStatus handles PUT /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.ExpectedVersion)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdatePayment handles PUT /orders/{id}/payment.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PaymentStatus == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_status is required"})
		return
	}

	o, err := h.svc.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		writeServiceError(w, "update payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ClearAll handles DELETE /orders.
func (h *OrderHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearAll(r.Context())
	if err != nil {
		log.Printf("ERROR: clear orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Summary handles GET /admin/summary?date=YYYY-MM-DD. The date defaults to
// today.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.loc)
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		day = d
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, h.loc)

	orders, err := h.svc.List(r.Context(), service.ListParams{
		From:  start,
		To:    start.AddDate(0, 0, 1),
		Limit: maxListLimit,
	})
	if err != nil {
		log.Printf("ERROR: list orders for summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, admin.Summarize(orders, start, h.loc))
}

// --- Helpers ---

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrOrderIDRequired) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, order.ErrInvalidStatus) ||
		errors.Is(err, order.ErrInvalidPaymentStatus) ||
		errors.Is(err, cart.ErrProductNotFound) ||
		errors.Is(err, cart.ErrNotOrderable) ||
		errors.Is(err, cart.ErrInvalidAddOn) ||
		errors.Is(err, cart.ErrOfferNotFound) ||
		errors.Is(err, cart.ErrComboSelection)
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, cart.ErrCartNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPaymentProvider):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
