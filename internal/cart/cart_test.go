package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/catalog"
)

func product(t *testing.T, id string) catalog.Product {
	t.Helper()
	p, ok := catalog.Default().Product(id)
	require.True(t, ok, id)
	return p
}

func rs(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestKey_AddOnOrderIrrelevant(t *testing.T) {
	a := cart.Key("hot-coffees-2", []string{"addon-oat-milk", "addon-extra-shot"}, "")
	b := cart.Key("hot-coffees-2", []string{"addon-extra-shot", "addon-oat-milk"}, "")
	assert.Equal(t, a, b)
	assert.Equal(t, "hot-coffees-2-addon-extra-shot,addon-oat-milk", a)
	assert.Equal(t, "hot-coffees-2-", cart.Key("hot-coffees-2", nil, ""))
}

func TestAddItem_RepeatedAddsMerge(t *testing.T) {
	c := &cart.Cart{ID: "c1"}
	americano := product(t, "hot-coffees-2")
	for i := 0; i < 4; i++ {
		c.AddItem(americano, nil)
	}
	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestAddItem_DifferentAddOnsAreSeparateLines(t *testing.T) {
	c := &cart.Cart{ID: "c1"}
	americano := product(t, "hot-coffees-2")
	c.AddItem(americano, nil)
	c.AddItem(americano, []catalog.Product{product(t, "addon-oat-milk")})
	assert.Len(t, c.Items, 2)
}

func TestCoffeePairs(t *testing.T) {
	americano := product(t, "hot-coffees-2")
	tests := []struct {
		qty      int
		total    int64
		discount int64
	}{
		{1, 155, 0},
		{2, 155, 155},
		{3, 310, 155},
		{4, 310, 310},
	}
	for _, tt := range tests {
		c := &cart.Cart{}
		for i := 0; i < tt.qty; i++ {
			c.AddItem(americano, nil)
		}
		assert.True(t, c.Total().Equal(rs(tt.total)), "qty %d total %s", tt.qty, c.Total())
		assert.True(t, c.CoffeeDiscount().Equal(rs(tt.discount)), "qty %d discount %s", tt.qty, c.CoffeeDiscount())
	}
}

func TestCoffeeDeal_AddOnsStillCharged(t *testing.T) {
	c := &cart.Cart{}
	americano := product(t, "hot-coffees-2")
	shot := product(t, "addon-extra-shot")
	c.AddItem(americano, []catalog.Product{shot})
	c.AddItem(americano, []catalog.Product{shot})

	// (155+40)*2 - 155
	assert.True(t, c.Total().Equal(rs(235)), c.Total().String())
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	americano := product(t, "hot-coffees-2")
	a := &cart.Cart{}
	a.AddItem(americano, nil)
	b := &cart.Cart{}
	b.AddItem(americano, nil)
	key := a.Items[0].Key

	a.UpdateQuantity(key, 0)
	b.RemoveItem(key)
	assert.Equal(t, a.Items, b.Items)
	assert.True(t, a.IsEmpty())

	c := &cart.Cart{}
	c.AddItem(americano, nil)
	c.UpdateQuantity(key, -3)
	assert.True(t, c.IsEmpty())
}

func TestUpdateQuantity_SetsAbsolute(t *testing.T) {
	c := &cart.Cart{}
	c.AddItem(product(t, "burgers-1"), nil)
	c.UpdateQuantity(c.Items[0].Key, 5)
	assert.Equal(t, 5, c.Items[0].Quantity)

	c.UpdateQuantity("missing", 2)
	assert.Len(t, c.Items, 1)
}

func TestAddCombo(t *testing.T) {
	cat := catalog.Default()
	offer, ok := cat.Offer("today-offer-1")
	require.True(t, ok)

	c := &cart.Cart{}
	mojito := product(t, "mocktails-iced-teas-2")
	margherita := product(t, "thin-crust-pizza-1")
	require.NoError(t, c.AddCombo(offer, []catalog.Product{mojito, margherita}))

	require.Len(t, c.Items, 2)
	assert.True(t, c.Items[0].UnitPrice.Equal(rs(191)), c.Items[0].UnitPrice.String())
	assert.True(t, c.Items[1].UnitPrice.Equal(rs(359)), c.Items[1].UnitPrice.String())
	assert.Equal(t, "today-offer-1", c.Items[0].OfferID)
	assert.Contains(t, c.Items[0].Name, "Mocktail + Pizza")
	assert.True(t, c.Total().Equal(rs(550)))

	// A regular mojito stays its own line.
	c.AddItem(mojito, nil)
	assert.Len(t, c.Items, 3)
}

func TestAddCombo_CoffeeExcludedFromDeal(t *testing.T) {
	cat := catalog.Default()
	offer, ok := cat.Offer("today-offer-3")
	require.True(t, ok)

	pancake := product(t, "all-day-breakfast-2")
	americano := product(t, "hot-coffees-2")
	c := &cart.Cart{}
	require.NoError(t, c.AddCombo(offer, []catalog.Product{pancake, americano}))
	require.NoError(t, c.AddCombo(offer, []catalog.Product{pancake, americano}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[1].Quantity)
	assert.True(t, c.CoffeeDiscount().IsZero())
	assert.True(t, c.Total().Equal(rs(800)), c.Total().String())
}

func TestSnapshot_SumsToTotal(t *testing.T) {
	c := &cart.Cart{}
	americano := product(t, "hot-coffees-2")
	for i := 0; i < 3; i++ {
		c.AddItem(americano, nil)
	}
	c.AddItem(product(t, "burgers-1"), []catalog.Product{product(t, "addon-extra-cheese")})

	items := c.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].FreeUnits)
	assert.True(t, items[0].LineTotal.Equal(rs(310)))
	assert.True(t, items[1].LineTotal.Equal(rs(455)))

	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal)
	}
	assert.True(t, sum.Equal(c.Total()))
}
