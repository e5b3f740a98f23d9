package service

import "errors"

// Errors returned by the floor/order services. Handlers map these onto
// the HTTP taxonomy: not-found 404, conflict 409, validation 400,
// busy 503.
var (
	// Not found.
	ErrTableNotFound    = errors.New("table not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrModifierNotFound = errors.New("modifier not found")

	// Conflicts.
	ErrTableNotFree      = errors.New("table is not free")
	ErrTableRetired      = errors.New("table has been merged or split")
	ErrOrderClosed       = errors.New("order is already completed or cancelled")
	ErrItemsNotReady     = errors.New("not every item is ready")
	ErrInvalidTransition = errors.New("status transition not allowed")

	// Validation.
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidOrderType     = errors.New("invalid order type")
	ErrTableRequired        = errors.New("dine-in orders require a table")
	ErrTableNotAllowed      = errors.New("takeaway orders cannot reference a table")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrInvalidModifierID    = errors.New("invalid modifier_id")
	ErrInvalidTableID       = errors.New("invalid table id")
	ErrModifierMismatch     = errors.New("modifier does not belong to menu item")
	ErrJoinCount            = errors.New("joining requires at least two tables")
	ErrDuplicateTable       = errors.New("duplicate table id")
	ErrSplitCount           = errors.New("split count must be at least 2")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)
