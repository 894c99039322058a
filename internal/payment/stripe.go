// Package payment integrates the hosted card checkout and its webhooks.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tapntake/api/internal/order"
)

// Webhook event types handled by the API.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNoLineItems      = errors.New("order has nothing to charge")
	ErrNotConfigured    = errors.New("payment provider not configured")
)

// Session is a created hosted checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WebhookEvent is the part of a provider event the API acts on.
type WebhookEvent struct {
	ID        string
	Type      string
	OrderID   string
	SessionID string
}

// Config configures the Stripe gateway.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PublicBaseURL string
	Currency      string
}

// StripeGateway creates checkout sessions and verifies webhooks.
type StripeGateway struct {
	api *client.API
	cfg Config
}

// NewStripeGateway creates a gateway. backends may be nil to use Stripe's
// default endpoints.
func NewStripeGateway(cfg Config, backends *stripe.Backends) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)
	return &StripeGateway{api: api, cfg: cfg}
}

// CreateCheckoutSession opens a hosted payment page for o.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, o order.Order) (Session, error) {
	if g.cfg.SecretKey == "" {
		return Session{}, ErrNotConfigured
	}
	items := LineItems(o, g.cfg.Currency)
	if len(items) == 0 {
		return Session{}, ErrNoLineItems
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          items,
		SuccessURL:         stripe.String(fmt.Sprintf("%s/order/%s?payment=success", g.cfg.PublicBaseURL, o.ID)),
		CancelURL:          stripe.String(g.cfg.PublicBaseURL + "/?payment=cancelled"),
		ClientReferenceID:  stripe.String(o.ID),
	}
	params.Context = ctx
	params.AddMetadata("orderId", o.ID)
	params.AddMetadata("tableNumber", o.TableNumber)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

// LineItems converts order items into checkout lines. Free coffee units are
// not charged, but their add-ons are, on a separate line, so the session
// total always equals the order total.
func LineItems(o order.Order, currency string) []*stripe.CheckoutSessionLineItemParams {
	var lines []*stripe.CheckoutSessionLineItemParams
	for _, it := range o.Items {
		addOns := it.AddOnPrice()
		unit := it.UnitPrice.Add(addOns)
		if paid := it.Quantity - it.FreeUnits; paid > 0 && unit.IsPositive() {
			lines = append(lines, lineItem(currency, it.Name, unit, paid))
		}
		if it.FreeUnits > 0 && addOns.IsPositive() {
			lines = append(lines, lineItem(currency, it.Name+" add-ons (free drink)", addOns, it.FreeUnits))
		}
	}
	return lines
}

func lineItem(currency, name string, unit decimal.Decimal, qty int) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(MinorUnits(unit)),
		},
		Quantity: stripe.Int64(int64(qty)),
	}
}

// MinorUnits converts a major-unit amount to the smallest currency unit.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ParseWebhook verifies the signature header and extracts the checkout
// session the event refers to.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || ev.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = sess.ID
	out.OrderID = sess.Metadata["orderId"]
	if out.OrderID == "" {
		out.OrderID = sess.ClientReferenceID
	}
	return out, nil
}
