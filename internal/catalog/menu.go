package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/enum"
)

var (
	veg    = ptr(true)
	nonVeg = ptr(false)
)

func ptr(b bool) *bool { return &b }

func rs(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

var (
	coffeeAddOns   = []string{"addon-extra-shot", "addon-oat-milk", "addon-almond-milk", "addon-vanilla-syrup", "addon-hazelnut-syrup"}
	icedAddOns     = []string{"addon-extra-shot", "addon-oat-milk", "addon-vanilla-syrup", "addon-hazelnut-syrup", "addon-cold-foam"}
	shakeAddOns    = []string{"addon-ice-cream", "addon-whipped-cream"}
	pancakeAddOns  = []string{"addon-maple-syrup", "addon-ice-cream", "addon-whipped-cream"}
	burgerAddOns   = []string{"addon-extra-cheese", "addon-jalapenos", "addon-fried-egg"}
	pizzaAddOns    = []string{"addon-extra-cheese", "addon-jalapenos"}
	friesAddOns    = []string{"addon-extra-cheese", "addon-jalapenos"}
	eggsAddOns     = []string{"addon-sourdough", "addon-avocado"}
	dessertsAddOns = []string{"addon-ice-cream"}
	mocktailAddOns = []string{"addon-chia-seeds"}
	teaAddOns      = []string{"addon-honey"}
	coldBrewAddOns = []string{"addon-cold-foam", "addon-vanilla-syrup"}
	hotChocoAddOns = []string{"addon-marshmallows", "addon-whipped-cream", "addon-oat-milk"}
)

func menu() []Product {
	return []Product{
		// Today's offers
		{ID: "today-offer-1", Name: "Mocktail + Pizza", Description: "Any Mocktail + Any Pizza - Special combo offer", Price: rs(550), Category: enum.CategorySpecialOffers, IsVeggie: veg, IsSpecialOffer: true},
		{ID: "today-offer-2", Name: "Mocktail + Burger", Description: "Any Mocktail + Any Burger - Special combo offer", Price: rs(550), Category: enum.CategorySpecialOffers, IsVeggie: nonVeg, IsSpecialOffer: true},
		{ID: "today-offer-3", Name: "Pancake + Coffee/Shake", Description: "Any Pancake + Any Coffee or Shake - Special combo offer", Price: rs(400), Category: enum.CategorySpecialOffers, IsVeggie: veg, IsSpecialOffer: true},

		// Voyage eggs
		{ID: "voyage-eggs-1", Name: "Choice of Eggs", Description: "Fried, poached or scrambled with toast", Price: rs(215), Category: enum.CategoryEggs, IsVeggie: nonVeg, AddOns: eggsAddOns},
		{ID: "voyage-eggs-2", Name: "Sauteed Garlic Spinach Omelette", Price: rs(275), Category: enum.CategoryEggs, IsVeggie: nonVeg, AddOns: eggsAddOns},
		{ID: "voyage-eggs-4", Name: "Scrambled Eggs with Truffle Oil", Price: rs(345), Category: enum.CategoryEggs, IsVeggie: nonVeg, AddOns: eggsAddOns},
		{ID: "voyage-eggs-5", Name: "Shakshuka Baked Eggs", Price: rs(405), Category: enum.CategoryEggs, IsVeggie: nonVeg, AddOns: eggsAddOns},

		// All day breakfast
		{ID: "all-day-breakfast-1", Name: "French Toast with Dates Syrup", Price: rs(345), Category: enum.CategoryBreakfast, IsVeggie: veg, AddOns: pancakeAddOns},
		{ID: "all-day-breakfast-2", Name: "Classic American Pancakes", Price: rs(345), Category: enum.CategoryBreakfast, IsVeggie: veg, AddOns: pancakeAddOns},
		{ID: "all-day-breakfast-3", Name: "Chocolate Banana Pancake", Price: rs(345), Category: enum.CategoryBreakfast, IsVeggie: veg, AddOns: pancakeAddOns},
		{ID: "all-day-breakfast-4", Name: "Nutella Crepes with Roasted Walnut", Price: rs(405), Category: enum.CategoryBreakfast, IsVeggie: veg, AddOns: pancakeAddOns},
		{ID: "all-day-breakfast-5", Name: "Pesto Mushroom Sauteed Spinach Crepes", Price: rs(405), Category: enum.CategoryBreakfast, IsVeggie: veg},

		// Appetizing morsels
		{ID: "appetizing-morsels-1", Name: "Classic French Fries", Price: rs(215), Category: enum.CategoryMorsels, IsVeggie: veg, AddOns: friesAddOns},
		{ID: "appetizing-morsels-2", Name: "Peri Peri French Fries", Price: rs(275), Category: enum.CategoryMorsels, IsVeggie: veg, AddOns: friesAddOns},
		{ID: "appetizing-morsels-7", Name: "Garlic Bread", Price: rs(195), Category: enum.CategoryMorsels, IsVeggie: veg, AddOns: []string{"addon-extra-cheese"}},
		{ID: "appetizing-morsels-9", Name: "Nachos with Cheese Sauce", Price: rs(405), Category: enum.CategoryMorsels, IsVeggie: veg, AddOns: friesAddOns},
		{ID: "appetizing-morsels-18", Name: "Spicy Bbq Chicken Wings", Price: rs(465), Category: enum.CategoryMorsels, IsVeggie: nonVeg},

		// Burgers
		{ID: "burgers-1", Name: "Beetroot and Spinach Burger", Price: rs(405), Category: enum.CategoryBurgers, IsVeggie: veg, AddOns: burgerAddOns},
		{ID: "burgers-2", Name: "Crunchy Veg and Cheese Burger", Price: rs(405), Category: enum.CategoryBurgers, IsVeggie: veg, AddOns: burgerAddOns},
		{ID: "burgers-3", Name: "Fried Grilled Paneer Burger", Price: rs(445), Category: enum.CategoryBurgers, IsVeggie: veg, AddOns: burgerAddOns},
		{ID: "burgers-4", Name: "Chicken Barbeque Burger", Price: rs(465), Category: enum.CategoryBurgers, IsVeggie: nonVeg, AddOns: burgerAddOns},
		{ID: "burgers-5", Name: "Grilled Chicken Burger", Price: rs(465), Category: enum.CategoryBurgers, IsVeggie: nonVeg, AddOns: burgerAddOns},
		{ID: "burgers-7", Name: "Loaded Patty Chicken Burger", Price: rs(535), Category: enum.CategoryBurgers, IsVeggie: nonVeg, AddOns: burgerAddOns},

		// Thin crust pizza
		{ID: "thin-crust-pizza-1", Name: "Classic Margherita Pizza", Price: rs(405), Category: enum.CategoryPizzas, IsVeggie: veg, AddOns: pizzaAddOns},
		{ID: "thin-crust-pizza-2", Name: "Corn Capsicum Jalapeno Pizza", Price: rs(465), Category: enum.CategoryPizzas, IsVeggie: veg, AddOns: pizzaAddOns},
		{ID: "thin-crust-pizza-4", Name: "Mushroom Delight Pizza", Price: rs(535), Category: enum.CategoryPizzas, IsVeggie: veg, AddOns: pizzaAddOns},
		{ID: "thin-crust-pizza-7", Name: "Paneer Tikka Pizza", Price: rs(555), Category: enum.CategoryPizzas, IsVeggie: veg, AddOns: pizzaAddOns},
		{ID: "thin-crust-pizza-8", Name: "Pesto Chicken Pizza", Price: rs(565), Category: enum.CategoryPizzas, IsVeggie: nonVeg, AddOns: pizzaAddOns},
		{ID: "thin-crust-pizza-10", Name: "Smoky Barbeque Chicken Pizza", Price: rs(615), Category: enum.CategoryPizzas, IsVeggie: nonVeg, AddOns: pizzaAddOns},

		// Desserts
		{ID: "desserts-1", Name: "Blueberry Cheesecake", Price: rs(275), Category: enum.CategoryDesserts, IsVeggie: veg},
		{ID: "desserts-3", Name: "Chocolate Mousse Cake", Price: rs(275), Category: enum.CategoryDesserts, IsVeggie: veg},
		{ID: "desserts-5", Name: "Chocolate Walnut Brownie on Sizzler", Price: rs(405), Category: enum.CategoryDesserts, IsVeggie: veg, AddOns: dessertsAddOns},
		{ID: "desserts-6", Name: "Chocolate Lava Cake with Vanilla Ice Cream", Price: rs(405), Category: enum.CategoryDesserts, IsVeggie: veg, AddOns: dessertsAddOns},

		// Hot coffees
		{ID: "hot-coffees-1", Name: "Espresso", Description: "A concentrated shot of our house blend", Price: rs(125), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-2", Name: "Americano", Description: "Espresso topped with hot water", Price: rs(155), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-3", Name: "Espresso Macchiato", Price: rs(155), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-4", Name: "Cappuccino", Price: rs(195), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-5", Name: "Latte", Price: rs(195), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-6", Name: "Mocha", Price: rs(195), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: coffeeAddOns},
		{ID: "hot-coffees-7", Name: "Affogato", Price: rs(225), Category: enum.CategoryHotCoffees, IsVeggie: veg},
		{ID: "hot-coffees-8", Name: "Hot Chocolate", Price: rs(250), Category: enum.CategoryHotCoffees, IsVeggie: veg, AddOns: hotChocoAddOns},

		// Iced coffees
		{ID: "iced-coffees-1", Name: "Iced Latte", Price: rs(225), Category: enum.CategoryIcedCoffees, IsVeggie: veg, AddOns: icedAddOns},
		{ID: "iced-coffees-2", Name: "Shaken Americano", Price: rs(200), Category: enum.CategoryIcedCoffees, IsVeggie: veg, AddOns: icedAddOns},
		{ID: "iced-coffees-3", Name: "Iced Mocha", Price: rs(225), Category: enum.CategoryIcedCoffees, IsVeggie: veg, AddOns: icedAddOns},
		{ID: "iced-coffees-4", Name: "Signature Cold Coffee", Price: rs(250), Category: enum.CategoryIcedCoffees, IsVeggie: veg, AddOns: icedAddOns},

		// Cold brews
		{ID: "cold-brews-1", Name: "Classic Cold Brew", Price: rs(200), Category: enum.CategoryColdBrews, IsVeggie: veg, AddOns: coldBrewAddOns},
		{ID: "cold-brews-2", Name: "Vietnamese Cold Brew", Price: rs(225), Category: enum.CategoryColdBrews, IsVeggie: veg, AddOns: coldBrewAddOns},
		{ID: "cold-brews-3", Name: "Hibiscus Rose Cold Brew", Price: rs(250), Category: enum.CategoryColdBrews, IsVeggie: veg, AddOns: coldBrewAddOns},
		{ID: "cold-brews-4", Name: "Sunrise Cold Brew", Price: rs(250), Category: enum.CategoryColdBrews, IsVeggie: veg, AddOns: coldBrewAddOns},

		// Specialty tea
		{ID: "specialty-tea-1", Name: "Regular Masala Tea", Price: rs(165), Category: enum.CategoryTeas, IsVeggie: veg, AddOns: teaAddOns},
		{ID: "specialty-tea-2", Name: "Ginger Tea", Price: rs(165), Category: enum.CategoryTeas, IsVeggie: veg, AddOns: teaAddOns},
		{ID: "specialty-tea-3", Name: "Earl Grey Tea Pot", Price: rs(250), Category: enum.CategoryTeas, IsVeggie: veg, AddOns: teaAddOns},
		{ID: "specialty-tea-6", Name: "Green Tea Pot", Price: rs(250), Category: enum.CategoryTeas, IsVeggie: veg, AddOns: teaAddOns},

		// Shakes
		{ID: "shakes-1", Name: "Vanilla Milkshake", Price: rs(225), Category: enum.CategoryShakes, IsVeggie: veg, AddOns: shakeAddOns},
		{ID: "shakes-4", Name: "Chocolate Milk Shake", Price: rs(235), Category: enum.CategoryShakes, IsVeggie: veg, AddOns: shakeAddOns},
		{ID: "shakes-6", Name: "Kit Kat and Nut Shake", Price: rs(275), Category: enum.CategoryShakes, IsVeggie: veg, AddOns: shakeAddOns},
		{ID: "shakes-7", Name: "Cold Mocha Frappe", Price: rs(275), Category: enum.CategoryShakes, IsVeggie: veg, AddOns: shakeAddOns},
		{ID: "shakes-8", Name: "Oreo Frappe", Price: rs(275), Category: enum.CategoryShakes, IsVeggie: veg, AddOns: shakeAddOns},

		// Mocktails and iced teas
		{ID: "mocktails-iced-teas-1", Name: "Peach Iced Tea", Price: rs(205), Category: enum.CategoryMocktails, IsVeggie: veg, AddOns: mocktailAddOns},
		{ID: "mocktails-iced-teas-2", Name: "Virgin Mojito", Price: rs(215), Category: enum.CategoryMocktails, IsVeggie: veg, AddOns: mocktailAddOns},
		{ID: "mocktails-iced-teas-3", Name: "Green Apple Mojito", Price: rs(265), Category: enum.CategoryMocktails, IsVeggie: veg, AddOns: mocktailAddOns},
		{ID: "mocktails-iced-teas-4", Name: "Fruit Punch", Price: rs(265), Category: enum.CategoryMocktails, IsVeggie: veg, AddOns: mocktailAddOns},
		{ID: "mocktails-iced-teas-5", Name: "Blue Moon", Price: rs(265), Category: enum.CategoryMocktails, IsVeggie: veg, AddOns: mocktailAddOns},

		// Add-ons
		{ID: "addon-extra-shot", Name: "Extra Espresso Shot", Price: rs(40), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-oat-milk", Name: "Oat Milk", Price: rs(60), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-almond-milk", Name: "Almond Milk", Price: rs(60), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-vanilla-syrup", Name: "Vanilla Syrup", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-hazelnut-syrup", Name: "Hazelnut Syrup", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-cold-foam", Name: "Sweet Cold Foam", Price: rs(50), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-marshmallows", Name: "Marshmallows", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-whipped-cream", Name: "Whipped Cream", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-ice-cream", Name: "Scoop of Vanilla Ice Cream", Price: rs(60), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-maple-syrup", Name: "Maple Syrup", Price: rs(40), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-extra-cheese", Name: "Extra Cheese", Price: rs(50), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-jalapenos", Name: "Jalapenos", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-fried-egg", Name: "Fried Egg", Price: rs(40), Category: enum.CategoryAddOns, IsVeggie: nonVeg, IsAddOn: true},
		{ID: "addon-sourdough", Name: "Sourdough Toast", Price: rs(60), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-avocado", Name: "Smashed Avocado", Price: rs(120), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-chia-seeds", Name: "Chia Seeds", Price: rs(30), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
		{ID: "addon-honey", Name: "Honey", Price: rs(20), Category: enum.CategoryAddOns, IsVeggie: veg, IsAddOn: true},
	}
}

func offers() []Offer {
	coffees := []string{enum.CategoryHotCoffees, enum.CategoryIcedCoffees, enum.CategoryColdBrews}
	return []Offer{
		{
			ID: "today-offer-1", Name: "Mocktail + Pizza", Price: rs(550),
			Description: "Any Mocktail + Any Pizza - Special combo offer",
			Slots: []Slot{
				{Label: "Select Mocktail", Categories: []string{enum.CategoryMocktails}},
				{Label: "Select Pizza", Categories: []string{enum.CategoryPizzas}},
			},
		},
		{
			ID: "today-offer-2", Name: "Mocktail + Burger", Price: rs(550),
			Description: "Any Mocktail + Any Burger - Special combo offer",
			Slots: []Slot{
				{Label: "Select Mocktail", Categories: []string{enum.CategoryMocktails}},
				{Label: "Select Burger", Categories: []string{enum.CategoryBurgers}},
			},
		},
		{
			ID: "today-offer-3", Name: "Pancake + Coffee/Shake", Price: rs(400),
			Description: "Any Pancake + Any Coffee or Shake - Special combo offer",
			Slots: []Slot{
				{Label: "Select Pancake", Categories: []string{enum.CategoryBreakfast}, NameContains: []string{"pancake", "crepe"}},
				{Label: "Select Coffee or Shake", Categories: append(coffees, enum.CategoryShakes)},
			},
		},
	}
}
