package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusNew   = "new"
	OrderStatusReady = "ready"
)

const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

// ── Change-feed ──

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Backend table names as seen by the change-feed.
const (
	TableTables     = "tables"
	TableCategories = "categories"
	TableProducts   = "products"
	TableOrders     = "orders"
)

// ── Order list sorting ──

const (
	SortCreatedAsc  = "created_asc"
	SortUpdatedDesc = "updated_desc"
)

// ── Screens ──

const (
	ScreenOrderTaking = "pos"
	ScreenKitchen     = "kitchen"
	ScreenReadyBoard  = "ready"
	ScreenWaiter      = "waiter"
)
