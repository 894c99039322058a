package cart

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/pricing"
)

// Item is one cart line: a product, its selected add-ons and a quantity.
type Item struct {
	Key            string          `json:"key"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	SelectedAddOns []order.AddOn   `json:"selected_add_ons"`
	OfferID        string          `json:"offer_id,omitempty"`
	OfferName      string          `json:"offer_name,omitempty"`
}

func (it Item) pricingLine() pricing.Line {
	addOns := decimal.Zero
	for _, a := range it.SelectedAddOns {
		addOns = addOns.Add(a.Price)
	}
	return pricing.Line{
		UnitPrice:  it.UnitPrice,
		AddOnPrice: addOns,
		Quantity:   it.Quantity,
		Category:   it.Category,
		Combo:      it.OfferID != "",
	}
}

// Cart is a customer's in-progress selection.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key identifies a cart line. Add-on order does not matter. Combo lines carry
// the offer and both picks so they never merge with regular lines or with a
// combo priced against a different partner.
func Key(productID string, addOnIDs []string, combo string) string {
	ids := append([]string(nil), addOnIDs...)
	sort.Strings(ids)
	k := productID + "-" + strings.Join(ids, ",")
	if combo != "" {
		k += "@" + combo
	}
	return k
}

// AddItem merges the product into an existing line with the same key or
// appends a new line with quantity 1.
func (c *Cart) AddItem(p catalog.Product, addOns []catalog.Product) {
	c.add(p, p.Price, addOns, "", "", "")
}

// AddCombo prices picks against the offer and adds each as its own line.
// The offer itself never becomes a line.
func (c *Cart) AddCombo(o catalog.Offer, picks []catalog.Product) error {
	prices := make([]decimal.Decimal, len(picks))
	ids := make([]string, len(picks))
	for i, p := range picks {
		prices[i] = p.Price
		ids[i] = p.ID
	}
	adjusted, err := pricing.Allocate(o.Price, prices)
	if err != nil {
		return fmt.Errorf("allocate %s: %w", o.ID, err)
	}
	combo := o.ID + ":" + strings.Join(ids, "+")
	for i, p := range picks {
		c.add(p, adjusted[i], nil, combo, o.ID, o.Name)
	}
	return nil
}

func (c *Cart) add(p catalog.Product, unit decimal.Decimal, addOns []catalog.Product, combo, offerID, offerName string) {
	selected := make([]order.AddOn, 0, len(addOns))
	ids := make([]string, 0, len(addOns))
	for _, a := range addOns {
		selected = append(selected, order.AddOn{ID: a.ID, Name: a.Name, Price: a.Price})
		ids = append(ids, a.ID)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })

	key := Key(p.ID, ids, combo)
	c.UpdatedAt = time.Now()
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items[i].Quantity++
			return
		}
	}

	name := p.Name
	if offerName != "" {
		name = fmt.Sprintf("%s (%s)", p.Name, offerName)
	}
	c.Items = append(c.Items, Item{
		Key:            key,
		ProductID:      p.ID,
		Name:           name,
		Category:       p.Category,
		UnitPrice:      unit,
		Quantity:       1,
		SelectedAddOns: selected,
		OfferID:        offerID,
		OfferName:      offerName,
	})
}

// RemoveItem deletes the line with key. Absent keys are ignored.
func (c *Cart) RemoveItem(key string) {
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// UpdateQuantity sets the line quantity; n <= 0 removes the line.
func (c *Cart) UpdateQuantity(key string, n int) {
	if n <= 0 {
		c.RemoveItem(key)
		return
	}
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items[i].Quantity = n
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
	c.UpdatedAt = time.Now()
}

// Find returns the line with key.
func (c *Cart) Find(key string) (Item, bool) {
	for _, it := range c.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Lines converts the cart for the pricing engine.
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = it.pricingLine()
	}
	return lines
}

func (c *Cart) Subtotal() decimal.Decimal       { return pricing.Subtotal(c.Lines()) }
func (c *Cart) CoffeeDiscount() decimal.Decimal { return pricing.CoffeeDiscount(c.Lines()) }
func (c *Cart) Total() decimal.Decimal          { return pricing.Total(c.Lines()) }

// Snapshot freezes the cart lines into order items. Each item's LineTotal is
// net of free coffee units, so the items sum to Total.
func (c *Cart) Snapshot() []order.Item {
	items := make([]order.Item, len(c.Items))
	for i, it := range c.Items {
		l := it.pricingLine()
		items[i] = order.Item{
			Key:            it.Key,
			ProductID:      it.ProductID,
			Name:           it.Name,
			Category:       it.Category,
			UnitPrice:      it.UnitPrice,
			Quantity:       it.Quantity,
			SelectedAddOns: append([]order.AddOn(nil), it.SelectedAddOns...),
			OfferID:        it.OfferID,
			OfferName:      it.OfferName,
			FreeUnits:      pricing.FreeUnits(l),
			LineTotal:      pricing.LineTotal(l).Sub(pricing.LineDiscount(l)),
		}
	}
	return items
}
