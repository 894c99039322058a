package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tapntake/api/internal/catalog"
)

// Errors returned by the cart service.
var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrNotOrderable    = errors.New("product cannot be ordered on its own")
	ErrInvalidAddOn    = errors.New("add-on not available for product")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrComboSelection  = errors.New("combo selection does not match offer")
)

// Store persists carts.
type Store interface {
	Get(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	// Update loads the cart, applies fn and saves it atomically.
	Update(ctx context.Context, id string, fn func(c *Cart) error) (*Cart, error)
	Delete(ctx context.Context, id string) error
}

// Service validates cart mutations against the catalog.
type Service struct {
	store   Store
	catalog *catalog.Catalog
}

// NewService creates a new Service.
func NewService(store Store, cat *catalog.Catalog) *Service {
	return &Service{store: store, catalog: cat}
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	c := &Cart{ID: uuid.NewString(), UpdatedAt: time.Now()}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Get returns the cart with id.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	return s.store.Get(ctx, id)
}

// AddItem adds one unit of productID with the given add-ons.
func (s *Service) AddItem(ctx context.Context, id, productID string, addOnIDs []string) (*Cart, error) {
	p, ok := s.catalog.Product(productID)
	if !ok {
		return nil, ErrProductNotFound
	}
	if p.IsAddOn || p.IsSpecialOffer {
		return nil, ErrNotOrderable
	}
	addOns, err := s.resolveAddOns(p, addOnIDs)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, func(c *Cart) error {
		c.AddItem(p, addOns)
		return nil
	})
}

// AddCombo adds the picks of a combo offer, one per slot in slot order.
func (s *Service) AddCombo(ctx context.Context, id, offerID string, productIDs []string) (*Cart, error) {
	o, ok := s.catalog.Offer(offerID)
	if !ok {
		return nil, ErrOfferNotFound
	}
	if len(productIDs) != len(o.Slots) {
		return nil, ErrComboSelection
	}
	picks := make([]catalog.Product, len(productIDs))
	for i, pid := range productIDs {
		p, ok := s.catalog.Product(pid)
		if !ok {
			return nil, fmt.Errorf("slot %d: %w", i, ErrProductNotFound)
		}
		if !o.Accepts(i, p) {
			return nil, fmt.Errorf("slot %d: %w", i, ErrComboSelection)
		}
		picks[i] = p
	}
	return s.store.Update(ctx, id, func(c *Cart) error {
		return c.AddCombo(o, picks)
	})
}

// RemoveItem removes the line with key.
func (s *Service) RemoveItem(ctx context.Context, id, key string) (*Cart, error) {
	return s.store.Update(ctx, id, func(c *Cart) error {
		c.RemoveItem(key)
		return nil
	})
}

// UpdateQuantity sets the quantity of the line with key.
func (s *Service) UpdateQuantity(ctx context.Context, id, key string, n int) (*Cart, error) {
	return s.store.Update(ctx, id, func(c *Cart) error {
		c.UpdateQuantity(key, n)
		return nil
	})
}

// Clear empties the cart but keeps its id.
func (s *Service) Clear(ctx context.Context, id string) (*Cart, error) {
	return s.store.Update(ctx, id, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Service) resolveAddOns(p catalog.Product, ids []string) ([]catalog.Product, error) {
	allowed := make(map[string]bool, len(p.AddOns))
	for _, a := range p.AddOns {
		allowed[a] = true
	}
	seen := make(map[string]bool, len(ids))
	out := make([]catalog.Product, 0, len(ids))
	for _, aid := range ids {
		if seen[aid] {
			continue
		}
		seen[aid] = true
		if !allowed[aid] {
			return nil, fmt.Errorf("%s: %w", aid, ErrInvalidAddOn)
		}
		a, ok := s.catalog.Product(aid)
		if !ok {
			return nil, fmt.Errorf("%s: %w", aid, ErrInvalidAddOn)
		}
		out = append(out, a)
	}
	return out, nil
}
