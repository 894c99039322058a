package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/auth"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/handler"
	"github.com/tapntake/api/internal/middleware"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/service"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn        func(ctx context.Context, o order.Order) (order.Order, bool, error)
	getFn           func(ctx context.Context, id string) (order.Order, error)
	listFn          func(ctx context.Context, p service.ListParams) ([]order.Order, error)
	updateStatusFn  func(ctx context.Context, id, status string, expectedVersion *int64) (order.Order, error)
	updatePaymentFn func(ctx context.Context, id, status string) (order.Order, error)
	clearAllFn      func(ctx context.Context) (int64, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, o order.Order) (order.Order, bool, error) {
	return m.createFn(ctx, o)
}

func (m *mockOrderService) Get(ctx context.Context, id string) (order.Order, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return order.Order{}, service.ErrOrderNotFound
}

func (m *mockOrderService) List(ctx context.Context, p service.ListParams) ([]order.Order, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p)
	}
	return []order.Order{}, nil
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id, status string, expectedVersion *int64) (order.Order, error) {
	return m.updateStatusFn(ctx, id, status, expectedVersion)
}

func (m *mockOrderService) UpdatePaymentStatus(ctx context.Context, id, status string) (order.Order, error) {
	return m.updatePaymentFn(ctx, id, status)
}

func (m *mockOrderService) ClearAll(ctx context.Context) (int64, error) {
	return m.clearAllFn(ctx)
}

// --- Helpers ---

var ist = time.FixedZone("IST", 5*3600+1800)

func newOrderRouter(svc handler.OrderServicer) http.Handler {
	h := handler.NewOrderHandler(svc, ist)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, uuid.New(), "tester", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func sampleOrder() order.Order {
	return order.Order{
		ID:            "ORD-1700000000000-42",
		Total:         decimal.NewFromInt(310),
		Status:        enum.OrderStatusPending,
		CustomerName:  "Table 12",
		TableNumber:   "12",
		PaymentStatus: enum.PaymentStatusPending,
		PaymentMethod: enum.PaymentMethodOnline,
		Timestamp:     time.Date(2026, 3, 10, 9, 0, 0, 0, ist),
		Version:       1,
	}
}

// --- Get ---

func TestGetOrder_PublicNoAuth(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(_ context.Context, id string) (order.Order, error) {
			if id != "ORD-1700000000000-42" {
				return order.Order{}, service.ErrOrderNotFound
			}
			return sampleOrder(), nil
		},
	}
	r := newOrderRouter(svc)

	rr := doJSON(t, r, "GET", "/orders/ORD-1700000000000-42", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != enum.OrderStatusPending {
		t.Errorf("status: got %v", resp["status"])
	}

	rr = doJSON(t, r, "GET", "/orders/missing", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing order: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- List ---

func TestListOrders_RequiresAuth(t *testing.T) {
	rr := doJSON(t, newOrderRouter(&mockOrderService{}), "GET", "/orders", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestListOrders_Filters(t *testing.T) {
	var got service.ListParams
	svc := &mockOrderService{
		listFn: func(_ context.Context, p service.ListParams) ([]order.Order, error) {
			got = p
			a := sampleOrder()
			b := sampleOrder()
			b.ID = "ORD-1700000000500-7"
			b.CustomerName = "Asha"
			b.Timestamp = a.Timestamp.Add(time.Hour)
			return []order.Order{a, b}, nil
		},
	}
	r := newOrderRouter(svc)
	token := tokenFor(t, enum.AdminRoleStaff)

	rr := doJSON(t, r, "GET", "/orders?status=active&search=asha&date=2026-03-10&limit=5000&offset=40", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got.Limit != 1000 {
		t.Errorf("limit: got %d, want capped 1000", got.Limit)
	}
	if got.Offset != 40 {
		t.Errorf("offset: got %d, want 40", got.Offset)
	}
	if got.Status != "active" {
		t.Errorf("status filter should reach the store, got %q", got.Status)
	}
	if got.Search != "asha" {
		t.Errorf("search should reach the store, got %q", got.Search)
	}
	wantFrom := time.Date(2026, 3, 10, 0, 0, 0, 0, ist)
	if !got.From.Equal(wantFrom) || !got.To.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Errorf("date range: got %v..%v", got.From, got.To)
	}

	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("expected the page the store returned, got %d", len(orders))
	}
	first := orders[0].(map[string]interface{})
	if first["id"] != "ORD-1700000000500-7" {
		t.Errorf("expected newest first, got %v", first["id"])
	}
}

func TestListOrders_BadInput(t *testing.T) {
	r := newOrderRouter(&mockOrderService{})
	token := tokenFor(t, enum.AdminRoleStaff)

	for _, path := range []string{"/orders?status=bogus", "/orders?date=10-03-2026"} {
		rr := doJSON(t, r, "GET", path, nil, token)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", path, rr.Code, http.StatusBadRequest)
		}
	}
}

// --- Create ---

func TestCreateOrder_Idempotent(t *testing.T) {
	seen := map[string]bool{}
	svc := &mockOrderService{
		createFn: func(_ context.Context, o order.Order) (order.Order, bool, error) {
			if o.ID == "" {
				return order.Order{}, false, service.ErrOrderIDRequired
			}
			created := !seen[o.ID]
			seen[o.ID] = true
			return o, created, nil
		},
	}
	r := newOrderRouter(svc)
	token := tokenFor(t, enum.AdminRoleStaff)
	body := sampleOrder()

	if rr := doJSON(t, r, "POST", "/orders", body, token); rr.Code != http.StatusCreated {
		t.Fatalf("first push: got %d, want %d", rr.Code, http.StatusCreated)
	}
	if rr := doJSON(t, r, "POST", "/orders", body, token); rr.Code != http.StatusOK {
		t.Fatalf("replay: got %d, want %d", rr.Code, http.StatusOK)
	}
	if rr := doJSON(t, r, "POST", "/orders", order.Order{}, token); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- UpdateStatus ---

func TestUpdateStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"invalid status", order.ErrInvalidStatus, http.StatusBadRequest},
		{"invalid transition", order.ErrInvalidTransition, http.StatusConflict},
		{"stale version", service.ErrConflict, http.StatusConflict},
		{"db down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotVersion *int64
			svc := &mockOrderService{
				updateStatusFn: func(_ context.Context, id, status string, v *int64) (order.Order, error) {
					gotVersion = v
					if tt.err != nil {
						return order.Order{}, tt.err
					}
					o := sampleOrder()
					o.Status = status
					return o, nil
				},
			}
			rr := doJSON(t, newOrderRouter(svc), "PUT", "/orders/ORD-1/status",
				map[string]interface{}{"status": "preparing", "expected_version": 1},
				tokenFor(t, enum.AdminRoleStaff))
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
			if gotVersion == nil || *gotVersion != 1 {
				t.Errorf("expected_version not passed through: %v", gotVersion)
			}
		})
	}
}

func TestUpdateStatus_MissingStatus(t *testing.T) {
	rr := doJSON(t, newOrderRouter(&mockOrderService{}), "PUT", "/orders/ORD-1/status",
		map[string]string{}, tokenFor(t, enum.AdminRoleStaff))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- UpdatePayment ---

func TestUpdatePayment(t *testing.T) {
	svc := &mockOrderService{
		updatePaymentFn: func(_ context.Context, id, status string) (order.Order, error) {
			o := sampleOrder()
			o.PaymentStatus = status
			return o, nil
		},
	}
	rr := doJSON(t, newOrderRouter(svc), "PUT", "/orders/ORD-1/payment",
		map[string]string{"payment_status": "paid"}, tokenFor(t, enum.AdminRoleStaff))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["payment_status"] != "paid" {
		t.Errorf("payment_status: got %v", resp["payment_status"])
	}
}

// --- ClearAll ---

func TestClearAll_AdminOnly(t *testing.T) {
	calls := 0
	svc := &mockOrderService{
		clearAllFn: func(context.Context) (int64, error) {
			calls++
			return 3, nil
		},
	}
	r := newOrderRouter(svc)

	if rr := doJSON(t, r, "DELETE", "/orders", nil, tokenFor(t, enum.AdminRoleStaff)); rr.Code != http.StatusForbidden {
		t.Fatalf("staff: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	rr := doJSON(t, r, "DELETE", "/orders", nil, tokenFor(t, enum.AdminRoleAdmin))
	if rr.Code != http.StatusOK {
		t.Fatalf("admin: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decodeResponse(t, rr); resp["deleted"] != float64(3) {
		t.Errorf("deleted: got %v", resp["deleted"])
	}
	if calls != 1 {
		t.Errorf("expected one clear, got %d", calls)
	}
}

// --- Summary ---

func TestSummary(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(_ context.Context, p service.ListParams) ([]order.Order, error) {
			done := sampleOrder()
			done.Status = enum.OrderStatusCompleted
			return []order.Order{done, sampleOrder()}, nil
		},
	}
	rr := doJSON(t, newOrderRouter(svc), "GET", "/admin/summary?date=2026-03-10", nil, tokenFor(t, enum.AdminRoleStaff))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["date"] != "2026-03-10" {
		t.Errorf("date: got %v", resp["date"])
	}
	if resp["orders"] != float64(2) || resp["active"] != float64(1) {
		t.Errorf("counts: got orders=%v active=%v", resp["orders"], resp["active"])
	}
	if resp["date_total"] != "310" {
		t.Errorf("date_total: got %v", resp["date_total"])
	}
}
