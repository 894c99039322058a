package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/order"
)

// CartServicer defines the cart operations exposed over HTTP.
// Satisfied by *cart.Service.
type CartServicer interface {
	Create(ctx context.Context) (*cart.Cart, error)
	Get(ctx context.Context, id string) (*cart.Cart, error)
	AddItem(ctx context.Context, id, productID string, addOnIDs []string) (*cart.Cart, error)
	AddCombo(ctx context.Context, id, offerID string, productIDs []string) (*cart.Cart, error)
	RemoveItem(ctx context.Context, id, key string) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, id, key string, n int) (*cart.Cart, error)
	Clear(ctx context.Context, id string) (*cart.Cart, error)
}

// CartHandler handles cart endpoints.
type CartHandler struct {
	svc CartServicer
}

func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Clear)
		r.Post("/{id}/items", h.AddItem)
		r.Put("/{id}/items/{key}", h.UpdateQuantity)
		r.Delete("/{id}/items/{key}", h.RemoveItem)
		r.Post("/{id}/combos", h.AddCombo)
	})
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string   `json:"product_id"`
	AddOns    []string `json:"add_ons"`
}

type addComboRequest struct {
	OfferID    string   `json:"offer_id"`
	ProductIDs []string `json:"product_ids"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type cartResponse struct {
	ID             string          `json:"id"`
	Items          []order.Item    `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CoffeeDiscount decimal.Decimal `json:"coffee_discount"`
	Total          decimal.Decimal `json:"total"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Snapshot()
	if items == nil {
		items = []order.Item{}
	}
	return cartResponse{
		ID:             c.ID,
		Items:          items,
		Subtotal:       c.Subtotal(),
		CoffeeDiscount: c.CoffeeDiscount(),
		Total:          c.Total(),
		UpdatedAt:      c.UpdatedAt,
	}
}

// --- Handlers ---

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Create(r.Context())
	if err != nil {
		writeServiceError(w, "create cart", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(c))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "get cart")(h.svc.Get(r.Context(), chi.URLParam(r, "id")))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "clear cart")(h.svc.Clear(r.Context(), chi.URLParam(r, "id")))
}

// AddItem handles POST /carts/{id}/items. Adding the same product with the
// same add-ons again increments the existing line.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}
	h.respond(w, "add cart item")(h.svc.AddItem(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.AddOns))
}

// AddCombo handles POST /carts/{id}/combos.
func (h *CartHandler) AddCombo(w http.ResponseWriter, r *http.Request) {
	var req addComboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OfferID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offer_id is required"})
		return
	}
	h.respond(w, "add combo")(h.svc.AddCombo(r.Context(), chi.URLParam(r, "id"), req.OfferID, req.ProductIDs))
}

// UpdateQuantity handles PUT /carts/{id}/items/{key}. A quantity of zero or
// less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	h.respond(w, "update cart quantity")(h.svc.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), itemKey(r), *req.Quantity))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "remove cart item")(h.svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), itemKey(r)))
}

// itemKey returns the decoded line key. Keys contain ',' '@' and '+',
// which clients may percent-encode.
func itemKey(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

func (h *CartHandler) respond(w http.ResponseWriter, op string) func(*cart.Cart, error) {
	return func(c *cart.Cart, err error) {
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(c))
	}
}
