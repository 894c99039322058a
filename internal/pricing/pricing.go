// Package pricing computes cart and order amounts. All functions are pure.
//
// The coffee promotion uses pair-counting: within one line of a coffee
// category every second unit is free, add-ons are always charged, and lines
// already priced by a combo offer never qualify.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/catalog"
)

var (
	ErrEmptyCombo     = errors.New("combo needs at least one item")
	ErrInvalidCombo   = errors.New("combo items must have a positive regular total")
	ErrNegativeAmount = errors.New("offer price must not be negative")
)

// Line is the pricing view of a cart or order line.
type Line struct {
	UnitPrice  decimal.Decimal
	AddOnPrice decimal.Decimal // sum of selected add-ons, per unit
	Quantity   int
	Category   string
	Combo      bool
}

// LineTotal is (unit price + add-ons) × quantity, before promotions.
func LineTotal(l Line) decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.UnitPrice.Add(l.AddOnPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FreeUnits returns how many units of the line the coffee deal gives away.
func FreeUnits(l Line) int {
	if l.Combo || l.Quantity < 2 || !catalog.IsCoffee(l.Category) {
		return 0
	}
	return l.Quantity / 2
}

// LineDiscount is the coffee discount attributable to a single line.
func LineDiscount(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(FreeUnits(l))))
}

// Subtotal sums LineTotal over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

// CoffeeDiscount sums floor(qty/2) × unit price over qualifying lines.
func CoffeeDiscount(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineDiscount(l))
	}
	return sum
}

// Total is Subtotal minus CoffeeDiscount.
func Total(lines []Line) decimal.Decimal {
	return Subtotal(lines).Sub(CoffeeDiscount(lines))
}

// Allocate spreads offerPrice across the regular prices of the chosen items:
//
//	adjusted_i = round(price_i − (regularTotal − offerPrice) × price_i / regularTotal)
//
// Rounding is half-up to whole currency units, so the result sums to
// offerPrice within len(prices) units.
func Allocate(offerPrice decimal.Decimal, prices []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(prices) == 0 {
		return nil, ErrEmptyCombo
	}
	if offerPrice.IsNegative() {
		return nil, ErrNegativeAmount
	}
	regular := decimal.Zero
	for _, p := range prices {
		if p.IsNegative() {
			return nil, ErrInvalidCombo
		}
		regular = regular.Add(p)
	}
	if !regular.IsPositive() {
		return nil, ErrInvalidCombo
	}

	discount := regular.Sub(offerPrice)
	out := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		share := discount.Mul(p).Div(regular)
		out[i] = p.Sub(share).Round(0)
	}
	return out, nil
}
