package enum

// Status values below are CHECK constrained in the schema; keep both in
// sync when adding one.

const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
	TableStatusReserved = "reserved"
	TableStatusMerged   = "merged"
	TableStatusSplit    = "split"
)

const (
	OrderStatusNew       = "new"
	OrderStatusPrep      = "prep"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderItemStatusNew    = "new"
	OrderItemStatusPrep   = "prep"
	OrderItemStatusReady  = "ready"
	OrderItemStatusServed = "served"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
)

// Modifier group kinds. Selection groups price flatly, grams groups
// reinterpret the item's base price as a per-kilogram rate, text groups
// carry kitchen instructions only.
const (
	ModifierKindSelection = "selection"
	ModifierKindText      = "text"
	ModifierKindGrams     = "grams"
)

const (
	UserRoleOwner   = "owner"
	UserRoleManager = "manager"
	UserRoleWaiter  = "waiter"
	UserRoleKitchen = "kitchen"
)

// OrderStatusTerminal reports whether an order status accepts no further
// mutations.
func OrderStatusTerminal(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// TableStatusRetired reports whether a table has been permanently retired
// by a join or split. Retired tables exist only for audit linkage.
func TableStatusRetired(s string) bool {
	return s == TableStatusMerged || s == TableStatusSplit
}
