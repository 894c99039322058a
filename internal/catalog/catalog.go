package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/enum"
)

var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrInvalidSlot   = errors.New("invalid offer slot")
)

// Product is a menu entry. Prices are whole rupees.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	IsVeggie       *bool           `json:"is_veggie,omitempty"`
	IsAddOn        bool            `json:"is_add_on"`
	AddOns         []string        `json:"add_ons,omitempty"`
	IsSpecialOffer bool            `json:"is_special_offer"`
}

// Slot is one customer choice inside a combo offer.
type Slot struct {
	Label        string   `json:"label"`
	Categories   []string `json:"categories"`
	NameContains []string `json:"name_contains,omitempty"`
}

// Offer bundles exactly two customer-chosen products under one price.
type Offer struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Slots       []Slot          `json:"slots"`
}

// Accepts reports whether p may fill the given slot of the offer.
func (o Offer) Accepts(slot int, p Product) bool {
	if slot < 0 || slot >= len(o.Slots) || p.IsAddOn || p.IsSpecialOffer {
		return false
	}
	s := o.Slots[slot]
	inCategory := false
	for _, c := range s.Categories {
		if p.Category == c {
			inCategory = true
			break
		}
	}
	if !inCategory {
		return false
	}
	if len(s.NameContains) == 0 {
		return true
	}
	name := strings.ToLower(p.Name)
	for _, frag := range s.NameContains {
		if strings.Contains(name, strings.ToLower(frag)) {
			return true
		}
	}
	return false
}

// Filter narrows a product listing. Zero value lists every orderable product.
type Filter struct {
	Category      string
	Query         string
	Veggie        *bool
	IncludeAddOns bool
}

// Catalog is an immutable, indexed menu.
type Catalog struct {
	products  []Product
	byID      map[string]int
	offers    []Offer
	offerByID map[string]int
}

// New indexes products and offers. Every add-on reference must resolve to a
// product flagged IsAddOn, and every offer needs a matching special-offer
// product so the menu can list it.
func New(products []Product, offers []Offer) (*Catalog, error) {
	c := &Catalog{
		products:  products,
		byID:      make(map[string]int, len(products)),
		offers:    offers,
		offerByID: make(map[string]int, len(offers)),
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product[%d]: empty id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q: negative price", p.ID)
		}
		c.byID[p.ID] = i
	}
	for _, p := range products {
		for _, aid := range p.AddOns {
			idx, ok := c.byID[aid]
			if !ok {
				return nil, fmt.Errorf("product %q: unknown add-on %q", p.ID, aid)
			}
			if !products[idx].IsAddOn {
				return nil, fmt.Errorf("product %q: %q is not an add-on", p.ID, aid)
			}
		}
	}
	for i, o := range offers {
		if len(o.Slots) != 2 {
			return nil, fmt.Errorf("offer %q: want 2 slots, got %d", o.ID, len(o.Slots))
		}
		idx, ok := c.byID[o.ID]
		if !ok || !products[idx].IsSpecialOffer {
			return nil, fmt.Errorf("offer %q: no special-offer product", o.ID)
		}
		c.offerByID[o.ID] = i
	}
	return c, nil
}

// Default returns the café menu.
func Default() *Catalog {
	c, err := New(menu(), offers())
	if err != nil {
		panic("catalog: invalid menu: " + err.Error())
	}
	return c
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// Products lists products matching f in menu order.
func (c *Catalog) Products(f Filter) []Product {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if p.IsAddOn && !f.IncludeAddOns {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Veggie != nil && (p.IsVeggie == nil || *p.IsVeggie != *f.Veggie) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the menu categories in order of first appearance.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.products {
		if p.IsAddOn || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// AddOnsFor resolves the add-on products offered with product id.
func (c *Catalog) AddOnsFor(id string) []Product {
	p, ok := c.Product(id)
	if !ok {
		return nil
	}
	out := make([]Product, 0, len(p.AddOns))
	for _, aid := range p.AddOns {
		if a, ok := c.Product(aid); ok {
			out = append(out, a)
		}
	}
	return out
}

// Offers lists the combo offers.
func (c *Catalog) Offers() []Offer {
	out := make([]Offer, len(c.offers))
	copy(out, c.offers)
	return out
}

// Offer looks up a combo offer by id.
func (c *Catalog) Offer(id string) (Offer, bool) {
	idx, ok := c.offerByID[id]
	if !ok {
		return Offer{}, false
	}
	return c.offers[idx], true
}

// Candidates lists the products a customer may pick for a slot of an offer.
func (c *Catalog) Candidates(offerID string, slot int) ([]Product, error) {
	o, ok := c.Offer(offerID)
	if !ok {
		return nil, ErrOfferNotFound
	}
	if slot < 0 || slot >= len(o.Slots) {
		return nil, ErrInvalidSlot
	}
	var out []Product
	for _, p := range c.products {
		if o.Accepts(slot, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// IsCoffee reports whether the category takes part in the 2-for-1 coffee deal.
func IsCoffee(category string) bool {
	switch category {
	case enum.CategoryHotCoffees, enum.CategoryIcedCoffees, enum.CategoryColdBrews:
		return true
	}
	return false
}
