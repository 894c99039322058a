package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tapntake/api/internal/metrics"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/payment"
	"github.com/tapntake/api/internal/service"
)

const maxWebhookBody = 64 << 10

// CheckoutServicer defines the service methods needed by checkout and the
// payment webhook. Satisfied by *service.OrderService.
type CheckoutServicer interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	MarkPaid(ctx context.Context, orderID, sessionID string) (order.Order, bool, error)
	MarkPaymentExpired(ctx context.Context, orderID string) (order.Order, bool, error)
}

// WebhookVerifier verifies and decodes provider webhooks.
// Satisfied by *payment.StripeGateway.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

// CheckoutHandler handles checkout and payment webhook endpoints.
type CheckoutHandler struct {
	svc      CheckoutServicer
	verifier WebhookVerifier
	dedupe   payment.Deduper
	metrics  *metrics.Metrics
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc CheckoutServicer, verifier WebhookVerifier, dedupe payment.Deduper, m *metrics.Metrics) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, verifier: verifier, dedupe: dedupe, metrics: m}
}

// RegisterRoutes registers checkout endpoints on the given Chi router.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Post("/webhooks/stripe", h.StripeWebhook)
}

// --- Request / Response types ---

type checkoutRequest struct {
	CartID        string `json:"cart_id"`
	TableNumber   string `json:"table_number"`
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
}

type checkoutResponse struct {
	Order       order.Order `json:"order"`
	SessionID   string      `json:"session_id,omitempty"`
	RedirectURL string      `json:"redirect_url,omitempty"`
}

// --- Handlers ---

// Checkout handles POST /checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CartID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart_id is required"})
		return
	}

	result, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{
		CartID:        req.CartID,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, "checkout", err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:       result.Order,
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
	})
}

// StripeWebhook handles POST /webhooks/stripe. Each event id is processed
// once; a failed event is forgotten so the provider's retry gets through.
func (h *CheckoutHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ev, err := h.verifier.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.metrics.WebhookEvent("unknown", "rejected")
		if !errors.Is(err, payment.ErrInvalidSignature) {
			log.Printf("ERROR: parse stripe webhook: %v", err)
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid webhook"})
		return
	}

	first, err := h.dedupe.FirstSeen(r.Context(), ev.ID)
	if err != nil {
		log.Printf("ERROR: dedupe stripe event %s: %v", ev.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !first {
		h.metrics.WebhookEvent(ev.Type, "duplicate")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.apply(r.Context(), ev); err != nil {
		if fErr := h.dedupe.Forget(r.Context(), ev.ID); fErr != nil {
			log.Printf("ERROR: forget stripe event %s: %v", ev.ID, fErr)
		}
		h.metrics.WebhookEvent(ev.Type, "failed")
		log.Printf("ERROR: handle stripe event %s (%s): %v", ev.ID, ev.Type, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.metrics.WebhookEvent(ev.Type, "processed")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// apply acts on one verified event. Events for unknown orders are
// acknowledged, since redelivery cannot make them succeed.
func (h *CheckoutHandler) apply(ctx context.Context, ev payment.WebhookEvent) error {
	err := h.dispatch(ctx, ev)
	if errors.Is(err, service.ErrOrderNotFound) {
		log.Printf("stripe event %s (%s) for unknown order %q", ev.ID, ev.Type, ev.OrderID)
		return nil
	}
	return err
}

func (h *CheckoutHandler) dispatch(ctx context.Context, ev payment.WebhookEvent) error {
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		o, changed, err := h.svc.MarkPaid(ctx, ev.OrderID, ev.SessionID)
		if err != nil {
			return err
		}
		if changed {
			log.Printf("order %s paid via session %s", o.ID, ev.SessionID)
		}
	case payment.EventCheckoutExpired:
		if ev.OrderID == "" {
			return nil
		}
		if _, _, err := h.svc.MarkPaymentExpired(ctx, ev.OrderID); err != nil {
			return err
		}
	}
	return nil
}
