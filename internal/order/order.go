// Package order holds the placed-order model shared by the API server and
// sync clients, together with its status and payment state machines.
package order

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/pricing"
)

var (
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentStatus = errors.New("invalid payment_status")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

// AddOn is an add-on captured on an order line.
type AddOn struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Item is a frozen snapshot of a cart line.
type Item struct {
	Key            string          `json:"key"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	SelectedAddOns []AddOn         `json:"selected_add_ons"`
	OfferID        string          `json:"offer_id,omitempty"`
	OfferName      string          `json:"offer_name,omitempty"`
	FreeUnits      int             `json:"free_units"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// AddOnPrice is the per-unit price of the selected add-ons.
func (it Item) AddOnPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range it.SelectedAddOns {
		sum = sum.Add(a.Price)
	}
	return sum
}

// PricingLine converts the item for the pricing engine.
func (it Item) PricingLine() pricing.Line {
	return pricing.Line{
		UnitPrice:  it.UnitPrice,
		AddOnPrice: it.AddOnPrice(),
		Quantity:   it.Quantity,
		Category:   it.Category,
		Combo:      it.OfferID != "",
	}
}

// Order is a placed order. Items and Total never change after creation.
type Order struct {
	ID              string          `json:"id"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	CustomerName    string          `json:"customer_name"`
	TableNumber     string          `json:"table_number,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	StripeSessionID string          `json:"stripe_session_id,omitempty"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive reports whether the order still needs kitchen attention.
func (o Order) IsActive() bool {
	switch o.Status {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady:
		return true
	}
	return false
}

// NewerThan reports whether o supersedes other. Version decides; UpdatedAt
// breaks ties between copies that carry the same version.
func (o Order) NewerThan(other Order) bool {
	if o.Version != other.Version {
		return o.Version > other.Version
	}
	return o.UpdatedAt.After(other.UpdatedAt)
}

// NewID generates an order id of the form ORD-<unix-ms>-<0..9999>.
func NewID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), rand.IntN(10000))
}

// TotalOf prices a set of items with the pricing engine.
func TotalOf(items []Item) decimal.Decimal {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = it.PricingLine()
	}
	return pricing.Total(lines)
}

// IsValidStatus checks if s is a known order status.
func IsValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusCompleted,
		enum.OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentStatus checks if s is a known payment status.
func IsValidPaymentStatus(s string) bool {
	switch s {
	case enum.PaymentStatusNotRequired,
		enum.PaymentStatusPending,
		enum.PaymentStatusPaid,
		enum.PaymentStatusFailed,
		enum.PaymentStatusCounterPending:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// completed and cancelled are terminal.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
}

// allowedPaymentTransitions mirrors allowedTransitions for payment_status.
// paid and not_required are terminal.
var allowedPaymentTransitions = map[string][]string{
	enum.PaymentStatusPending:        {enum.PaymentStatusPaid, enum.PaymentStatusFailed},
	enum.PaymentStatusCounterPending: {enum.PaymentStatusPaid},
	enum.PaymentStatusFailed:         {enum.PaymentStatusPending, enum.PaymentStatusPaid},
}

// ValidateTransition checks if the status transition from current to next is allowed.
func ValidateTransition(current, next string) error {
	return validate(allowedTransitions, current, next)
}

// ValidatePaymentTransition checks if the payment transition from current to
// next is allowed. Callers treat paid→paid as a no-op before asking.
func ValidatePaymentTransition(current, next string) error {
	return validate(allowedPaymentTransitions, current, next)
}

func validate(table map[string][]string, current, next string) error {
	allowed, ok := table[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// InitialPaymentStatus picks the payment status for a new order.
func InitialPaymentStatus(method string, total decimal.Decimal) string {
	if !total.IsPositive() {
		return enum.PaymentStatusNotRequired
	}
	if method == enum.PaymentMethodCounter {
		return enum.PaymentStatusCounterPending
	}
	return enum.PaymentStatusPending
}
