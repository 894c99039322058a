package handler_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/handler"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/payment"
	"github.com/tapntake/api/internal/service"
)

// --- Mocks ---

type mockCheckoutService struct {
	checkoutFn func(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	markPaidFn func(ctx context.Context, orderID, sessionID string) (order.Order, bool, error)
	expireFn   func(ctx context.Context, orderID string) (order.Order, bool, error)
}

func (m *mockCheckoutService) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	return m.checkoutFn(ctx, req)
}

func (m *mockCheckoutService) MarkPaid(ctx context.Context, orderID, sessionID string) (order.Order, bool, error) {
	return m.markPaidFn(ctx, orderID, sessionID)
}

func (m *mockCheckoutService) MarkPaymentExpired(ctx context.Context, orderID string) (order.Order, bool, error) {
	return m.expireFn(ctx, orderID)
}

type mockVerifier struct {
	parseFn func(payload []byte, signature string) (payment.WebhookEvent, error)
}

func (m *mockVerifier) ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	return m.parseFn(payload, signature)
}

func newCheckoutRouter(svc handler.CheckoutServicer, v handler.WebhookVerifier) http.Handler {
	r := chi.NewRouter()
	handler.NewCheckoutHandler(svc, v, payment.NewMemoryDeduper(time.Hour), nil).RegisterRoutes(r)
	return r
}

func postWebhook(r http.Handler, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", sig)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// --- Checkout ---

func TestCheckout_Online(t *testing.T) {
	var got service.CheckoutRequest
	svc := &mockCheckoutService{
		checkoutFn: func(_ context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
			got = req
			o := sampleOrder()
			return &service.CheckoutResult{Order: o, SessionID: "cs_test_1", RedirectURL: "https://checkout.stripe.com/c/cs_test_1"}, nil
		},
	}
	rr := postJSON(t, newCheckoutRouter(svc, nil), "/checkout", map[string]string{
		"cart_id":        "cart-1",
		"table_number":   "12",
		"payment_method": "online",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got.CartID != "cart-1" || got.TableNumber != "12" || got.PaymentMethod != enum.PaymentMethodOnline {
		t.Errorf("request not passed through: %+v", got)
	}
	resp := decodeResponse(t, rr)
	if resp["redirect_url"] != "https://checkout.stripe.com/c/cs_test_1" {
		t.Errorf("redirect_url: got %v", resp["redirect_url"])
	}
	o := resp["order"].(map[string]interface{})
	if o["total"] != "310" || o["status"] != enum.OrderStatusPending {
		t.Errorf("order: got total=%v status=%v", o["total"], o["status"])
	}
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusBadRequest},
		{"no table", service.ErrTableRequired, http.StatusBadRequest},
		{"bad method", service.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{"unknown cart", cart.ErrCartNotFound, http.StatusNotFound},
		{"provider down", service.ErrPaymentProvider, http.StatusBadGateway},
		{"db down", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				checkoutFn: func(context.Context, service.CheckoutRequest) (*service.CheckoutResult, error) {
					return nil, tt.err
				},
			}
			rr := postJSON(t, newCheckoutRouter(svc, nil), "/checkout", map[string]string{"cart_id": "c"})
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCheckout_MissingCartID(t *testing.T) {
	rr := postJSON(t, newCheckoutRouter(&mockCheckoutService{}, nil), "/checkout", map[string]string{"table_number": "3"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Webhook ---

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	v := &mockVerifier{parseFn: func([]byte, string) (payment.WebhookEvent, error) {
		return payment.WebhookEvent{}, payment.ErrInvalidSignature
	}}
	rr := postWebhook(newCheckoutRouter(&mockCheckoutService{}, v), "t=1,v1=bad")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStripeWebhook_CompletedIsProcessedOnce(t *testing.T) {
	calls := 0
	svc := &mockCheckoutService{
		markPaidFn: func(_ context.Context, orderID, sessionID string) (order.Order, bool, error) {
			calls++
			if orderID != "ORD-1" || sessionID != "cs_1" {
				t.Errorf("got order=%s session=%s", orderID, sessionID)
			}
			return order.Order{ID: orderID, PaymentStatus: enum.PaymentStatusPaid}, true, nil
		},
	}
	v := &mockVerifier{parseFn: func([]byte, string) (payment.WebhookEvent, error) {
		return payment.WebhookEvent{ID: "evt_1", Type: payment.EventCheckoutCompleted, OrderID: "ORD-1", SessionID: "cs_1"}, nil
	}}
	r := newCheckoutRouter(svc, v)

	for i := 0; i < 2; i++ {
		rr := postWebhook(r, "sig")
		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: got %d", i, rr.Code)
		}
		if resp := decodeResponse(t, rr); resp["received"] != true {
			t.Errorf("delivery %d: expected received=true", i)
		}
	}
	if calls != 1 {
		t.Errorf("MarkPaid calls: got %d, want 1", calls)
	}
}

func TestStripeWebhook_FailureAllowsRetry(t *testing.T) {
	fail := true
	calls := 0
	svc := &mockCheckoutService{
		markPaidFn: func(_ context.Context, orderID, _ string) (order.Order, bool, error) {
			calls++
			if fail {
				return order.Order{}, false, errors.New("db down")
			}
			return order.Order{ID: orderID}, true, nil
		},
	}
	v := &mockVerifier{parseFn: func([]byte, string) (payment.WebhookEvent, error) {
		return payment.WebhookEvent{ID: "evt_2", Type: payment.EventCheckoutCompleted, OrderID: "ORD-2"}, nil
	}}
	r := newCheckoutRouter(svc, v)

	if rr := postWebhook(r, "sig"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("first: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	fail = false
	if rr := postWebhook(r, "sig"); rr.Code != http.StatusOK {
		t.Fatalf("retry: got %d, want %d", rr.Code, http.StatusOK)
	}
	if calls != 2 {
		t.Errorf("MarkPaid calls: got %d, want 2", calls)
	}
}

func TestStripeWebhook_ExpiredAndUnknownOrder(t *testing.T) {
	expired := ""
	svc := &mockCheckoutService{
		expireFn: func(_ context.Context, orderID string) (order.Order, bool, error) {
			expired = orderID
			return order.Order{}, false, service.ErrOrderNotFound
		},
	}
	v := &mockVerifier{parseFn: func([]byte, string) (payment.WebhookEvent, error) {
		return payment.WebhookEvent{ID: "evt_3", Type: payment.EventCheckoutExpired, OrderID: "ORD-gone"}, nil
	}}
	rr := postWebhook(newCheckoutRouter(svc, v), "sig")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if expired != "ORD-gone" {
		t.Errorf("expired order: got %q", expired)
	}
}

func TestStripeWebhook_OtherTypesAcknowledged(t *testing.T) {
	v := &mockVerifier{parseFn: func([]byte, string) (payment.WebhookEvent, error) {
		return payment.WebhookEvent{ID: "evt_4", Type: "customer.created"}, nil
	}}
	rr := postWebhook(newCheckoutRouter(&mockCheckoutService{}, v), "sig")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}
