package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/enum"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := catalog.Default()

	americano, ok := c.Product("hot-coffees-2")
	require.True(t, ok)
	assert.Equal(t, "Americano", americano.Name)
	assert.True(t, americano.Price.Equal(decimal.NewFromInt(155)))
	assert.Equal(t, enum.CategoryHotCoffees, americano.Category)

	_, ok = c.Product("does-not-exist")
	assert.False(t, ok)
}

func TestProductsExcludesAddOnsByDefault(t *testing.T) {
	c := catalog.Default()

	for _, p := range c.Products(catalog.Filter{}) {
		assert.False(t, p.IsAddOn, "unexpected add-on %s", p.ID)
	}

	withAddOns := c.Products(catalog.Filter{IncludeAddOns: true, Category: enum.CategoryAddOns})
	assert.NotEmpty(t, withAddOns)
}

func TestProductsFilter(t *testing.T) {
	c := catalog.Default()

	burgers := c.Products(catalog.Filter{Category: enum.CategoryBurgers})
	require.NotEmpty(t, burgers)
	for _, p := range burgers {
		assert.Equal(t, enum.CategoryBurgers, p.Category)
	}

	veg := true
	vegBurgers := c.Products(catalog.Filter{Category: enum.CategoryBurgers, Veggie: &veg})
	for _, p := range vegBurgers {
		require.NotNil(t, p.IsVeggie)
		assert.True(t, *p.IsVeggie)
	}
	assert.Less(t, len(vegBurgers), len(burgers))

	mojitos := c.Products(catalog.Filter{Query: "MOJITO"})
	assert.Len(t, mojitos, 2)
}

func TestCategoriesInMenuOrder(t *testing.T) {
	cats := catalog.Default().Categories()
	require.NotEmpty(t, cats)
	assert.Equal(t, enum.CategorySpecialOffers, cats[0])
	assert.NotContains(t, cats, enum.CategoryAddOns)
}

func TestAddOnsFor(t *testing.T) {
	c := catalog.Default()

	addOns := c.AddOnsFor("hot-coffees-2")
	require.NotEmpty(t, addOns)
	for _, a := range addOns {
		assert.True(t, a.IsAddOn)
	}
	assert.Empty(t, c.AddOnsFor("hot-coffees-7"))
	assert.Nil(t, c.AddOnsFor("missing"))
}

func TestOfferCandidates(t *testing.T) {
	c := catalog.Default()

	pancakes, err := c.Candidates("today-offer-3", 0)
	require.NoError(t, err)
	ids := make([]string, len(pancakes))
	for i, p := range pancakes {
		ids[i] = p.ID
	}
	assert.ElementsMatch(t, []string{
		"all-day-breakfast-2", "all-day-breakfast-3", "all-day-breakfast-4", "all-day-breakfast-5",
	}, ids)

	drinks, err := c.Candidates("today-offer-3", 1)
	require.NoError(t, err)
	for _, p := range drinks {
		assert.True(t, catalog.IsCoffee(p.Category) || p.Category == enum.CategoryShakes, p.ID)
	}

	_, err = c.Candidates("today-offer-3", 2)
	assert.ErrorIs(t, err, catalog.ErrInvalidSlot)

	_, err = c.Candidates("nope", 0)
	assert.ErrorIs(t, err, catalog.ErrOfferNotFound)
}

func TestOfferAcceptsRejectsAddOnsAndOffers(t *testing.T) {
	c := catalog.Default()
	o, ok := c.Offer("today-offer-1")
	require.True(t, ok)

	addOn, _ := c.Product("addon-chia-seeds")
	assert.False(t, o.Accepts(0, addOn))

	mojito, _ := c.Product("mocktails-iced-teas-2")
	assert.True(t, o.Accepts(0, mojito))
	assert.False(t, o.Accepts(1, mojito))
}

func TestNewRejectsBadData(t *testing.T) {
	p := func(id string) catalog.Product {
		return catalog.Product{ID: id, Name: id, Price: decimal.NewFromInt(10)}
	}

	_, err := catalog.New([]catalog.Product{p("a"), p("a")}, nil)
	assert.Error(t, err, "duplicate id")

	withBadAddOn := p("b")
	withBadAddOn.AddOns = []string{"a"}
	_, err = catalog.New([]catalog.Product{p("a"), withBadAddOn}, nil)
	assert.Error(t, err, "add-on reference to non add-on")

	_, err = catalog.New([]catalog.Product{p("a")}, []catalog.Offer{{ID: "a", Slots: make([]catalog.Slot, 2)}})
	assert.Error(t, err, "offer without special-offer product")
}

func TestIsCoffee(t *testing.T) {
	assert.True(t, catalog.IsCoffee(enum.CategoryHotCoffees))
	assert.True(t, catalog.IsCoffee(enum.CategoryIcedCoffees))
	assert.True(t, catalog.IsCoffee(enum.CategoryColdBrews))
	assert.False(t, catalog.IsCoffee(enum.CategoryShakes))
	assert.False(t, catalog.IsCoffee(enum.CategoryTeas))
}
