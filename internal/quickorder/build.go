package quickorder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/order"
)

var ErrUnresolved = errors.New("ticket has unresolved lines")

// Problem is a ticket line that did not resolve to exactly one product.
type Problem struct {
	Line       string
	Status     MatchStatus
	Candidates []string
}

func (p Problem) String() string {
	if p.Status == Ambiguous {
		return fmt.Sprintf("%q could be %s", p.Line, strings.Join(p.Candidates, ", "))
	}
	return fmt.Sprintf("%q matches nothing on the menu", p.Line)
}

// UnresolvedError lists every line that needs retyping.
type UnresolvedError struct {
	Problems []Problem
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%v: %s", ErrUnresolved, strings.Join(parts, "; "))
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolved }

// Builder resolves tickets against one catalog. Combo offers are not
// orderable from a ticket.
type Builder struct {
	catalog  *catalog.Catalog
	products *Matcher
}

func NewBuilder(cat *catalog.Catalog) *Builder {
	var orderable []catalog.Product
	for _, p := range cat.Products(catalog.Filter{}) {
		if !p.IsSpecialOffer {
			orderable = append(orderable, p)
		}
	}
	return &Builder{catalog: cat, products: NewMatcher(orderable)}
}

// Build prices the ticket through a cart, so coffee pairs are discounted
// the same way as at checkout, and returns an order ready to be added
// locally.
func (b *Builder) Build(t *Ticket) (order.Order, error) {
	var c cart.Cart
	var problems []Problem

	for _, line := range t.Lines {
		res := b.products.Match(line.Description)
		if res.Status != Matched {
			problems = append(problems, problem(line.Description, res))
			continue
		}
		p := *res.Product

		addOns, addOnProblems := b.resolveAddOns(p, line.AddOns)
		if len(addOnProblems) > 0 {
			problems = append(problems, addOnProblems...)
			continue
		}
		for i := 0; i < line.Qty; i++ {
			c.AddItem(p, addOns)
		}
	}
	if len(problems) > 0 {
		return order.Order{}, &UnresolvedError{Problems: problems}
	}

	items := c.Snapshot()
	total := order.TotalOf(items)
	name := strings.TrimSpace(t.CustomerName)
	if name == "" {
		name = "Table " + t.TableNumber
	}
	return order.Order{
		Items:         items,
		Total:         total,
		Status:        enum.OrderStatusPending,
		CustomerName:  name,
		TableNumber:   t.TableNumber,
		PaymentMethod: enum.PaymentMethodCounter,
		PaymentStatus: order.InitialPaymentStatus(enum.PaymentMethodCounter, total),
	}, nil
}

func (b *Builder) resolveAddOns(p catalog.Product, typed []string) ([]catalog.Product, []Problem) {
	if len(typed) == 0 {
		return nil, nil
	}
	m := NewMatcher(b.catalog.AddOnsFor(p.ID))
	var out []catalog.Product
	var problems []Problem
	for _, text := range typed {
		res := m.Match(text)
		if res.Status != Matched {
			problems = append(problems, problem(p.Name+" + "+text, res))
			continue
		}
		out = append(out, *res.Product)
	}
	return out, problems
}

func problem(line string, res MatchResult) Problem {
	pr := Problem{Line: line, Status: res.Status}
	for _, c := range res.Candidates {
		pr.Candidates = append(pr.Candidates, c.Name)
	}
	return pr
}
