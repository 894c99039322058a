package quickorder

import (
	"errors"
	"testing"

	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/enum"
)

func mustParse(t *testing.T, text string) *Ticket {
	t.Helper()
	ticket, err := ParseTicket(text)
	if err != nil {
		t.Fatalf("ParseTicket(%q): %v", text, err)
	}
	return ticket
}

func TestBuild_CoffeePairDiscounted(t *testing.T) {
	b := NewBuilder(catalog.Default())

	o, err := b.Build(mustParse(t, "table 12; 3x americano"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 3 {
		t.Fatalf("items = %+v, want one line of 3", o.Items)
	}
	if o.Total.String() != "310" {
		t.Errorf("Total = %s, want 310", o.Total)
	}
	if o.CustomerName != "Table 12" || o.TableNumber != "12" {
		t.Errorf("customer = %q table = %q", o.CustomerName, o.TableNumber)
	}
	if o.PaymentMethod != enum.PaymentMethodCounter || o.PaymentStatus != enum.PaymentStatusCounterPending {
		t.Errorf("payment = %s/%s", o.PaymentMethod, o.PaymentStatus)
	}
	if o.Status != enum.OrderStatusPending {
		t.Errorf("Status = %s, want pending", o.Status)
	}
}

func TestBuild_AddOns(t *testing.T) {
	b := NewBuilder(catalog.Default())

	o, err := b.Build(mustParse(t, "t4 Asha; latte + oat milk + extra shot; garlic bread"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(o.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(o.Items))
	}
	latte := o.Items[0]
	if len(latte.SelectedAddOns) != 2 {
		t.Fatalf("latte add-ons = %+v", latte.SelectedAddOns)
	}
	// 195 + 60 + 40 for the latte, 195 for the bread.
	if o.Total.String() != "490" {
		t.Errorf("Total = %s, want 490", o.Total)
	}
	if o.CustomerName != "Asha" {
		t.Errorf("CustomerName = %q, want Asha", o.CustomerName)
	}
}

func TestBuild_Unresolved(t *testing.T) {
	b := NewBuilder(catalog.Default())

	_, err := b.Build(mustParse(t, "table 2; coffee; unicorn; latte + milk; latte + jalapenos"))
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	var ue *UnresolvedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnresolvedError, got %T", err)
	}
	if len(ue.Problems) != 4 {
		t.Fatalf("got %d problems, want 4: %v", len(ue.Problems), ue)
	}
	if ue.Problems[0].Status != Ambiguous || ue.Problems[1].Status != Unmatched {
		t.Errorf("statuses = %v, %v", ue.Problems[0].Status, ue.Problems[1].Status)
	}
	if ue.Problems[2].Status != Ambiguous {
		t.Errorf("\"milk\" should be ambiguous between oat and almond, got %v", ue.Problems[2].Status)
	}
}
