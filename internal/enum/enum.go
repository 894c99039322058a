package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusNotRequired    = "not_required"
	PaymentStatusPending        = "pending"
	PaymentStatusPaid           = "paid"
	PaymentStatusFailed         = "failed"
	PaymentStatusCounterPending = "counter_pending"
)

const (
	PaymentMethodOnline  = "online"
	PaymentMethodCounter = "counter"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	AdminRoleAdmin = "ADMIN"
	AdminRoleStaff = "STAFF"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	CategoryHotCoffees    = "hot-coffees"
	CategoryIcedCoffees   = "iced-coffees"
	CategoryColdBrews     = "cold-brews"
	CategoryTeas          = "specialty-tea"
	CategoryShakes        = "shakes"
	CategoryMocktails     = "mocktails-iced-teas"
	CategoryBreakfast     = "all-day-breakfast"
	CategoryEggs          = "voyage-eggs"
	CategoryMorsels       = "appetizing-morsels"
	CategoryBurgers       = "burgers"
	CategoryPizzas        = "thin-crust-pizza"
	CategoryDesserts      = "desserts"
	CategoryAddOns        = "add-ons"
	CategorySpecialOffers = "today-offers"
)

// Realtime change feed event types.
const (
	EventOrders        = "orders"
	EventNewOrder      = "new_order"
	EventOrderUpdated  = "order_updated"
	EventOrdersCleared = "orders_cleared"
)
