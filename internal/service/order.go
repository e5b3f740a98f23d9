package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/lock"
	"github.com/tably-pos/api/internal/pricing"
)

// OrderStore defines the DB methods needed by the order ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	// Catalog lookups (read-only).
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListModifierGroupsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.ModifierGroup, error)
	GetModifierForOrder(ctx context.Context, id uuid.UUID) (database.GetModifierForOrderRow, error)

	GetTable(ctx context.Context, id uuid.UUID) (database.FloorTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.FloorTable, error)

	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItemRequest is a single requested line: the catalog is consulted
// for prices, the request only names ids.
type OrderItemRequest struct {
	MenuItemID  string
	Quantity    int32
	ModifierIDs []string
	Notes       string
}

// CreateOrderRequest is the validated input for creating an order. For
// dine-in, a table that already carries an active order turns the call
// into an append to that order.
type CreateOrderRequest struct {
	BranchID  uuid.UUID
	CreatedBy uuid.UUID
	OrderType string
	TableID   string
	Notes     string
	Items     []OrderItemRequest
}

type AppendItemsRequest struct {
	BranchID uuid.UUID
	OrderID  uuid.UUID
	Items    []OrderItemRequest
}

type SetStatusRequest struct {
	BranchID      uuid.UUID
	OrderID       uuid.UUID
	Status        string
	PaymentStatus string
}

type ListOrdersRequest struct {
	BranchID  uuid.UUID
	Status    string // exact status, "active", or empty
	OrderType string // dine_in, takeaway, or empty
}

// OrderResult is an order with its items and the kitchen-derived status.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
	// KitchenStatus is advisory, derived from item statuses for display
	// sorting; the order's own status stays driven by payment/completion.
	KitchenStatus string
	// Appended is true when a create call landed on a table that already
	// had an active order and became an append instead.
	Appended bool
}

// OrderService is the order ledger: creation, appends, totals and
// order-level status.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	locks    *lock.Registry
	bc       Broadcaster
}

func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, locks *lock.Registry, bc Broadcaster) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, locks: locks, bc: bc}
}

// preparedItem is a fully priced line ready for insertion. Catalog
// resolution and pricing happen before any lock is taken so no external
// lookup runs inside a critical section.
type preparedItem struct {
	params    database.CreateOrderItemParams
	lineTotal decimal.Decimal
}

// CreateOrder validates, prices and creates an order atomically. A
// dine-in request for a table with an active order appends to it: a table
// never carries two concurrent active orders.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if req.OrderType != enum.OrderTypeDineIn && req.OrderType != enum.OrderTypeTakeaway {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	prepared, err := s.resolveItems(ctx, req.BranchID, req.Items)
	if err != nil {
		return nil, err
	}

	if req.OrderType == enum.OrderTypeTakeaway {
		if req.TableID != "" {
			return nil, ErrTableNotAllowed
		}
		return s.createTakeaway(ctx, req, prepared)
	}

	if req.TableID == "" {
		return nil, ErrTableRequired
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return nil, ErrInvalidTableID
	}
	return s.createDineIn(ctx, req, tableID, prepared)
}

func (s *OrderService) createTakeaway(ctx context.Context, req CreateOrderRequest, prepared []preparedItem) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	result, err := insertOrder(ctx, store, req, pgtype.UUID{}, prepared)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.bc.OrderCreated(req.BranchID, result)
	return result, nil
}

func (s *OrderService) createDineIn(ctx context.Context, req CreateOrderRequest, tableID uuid.UUID, prepared []preparedItem) (*OrderResult, error) {
	releaseTable, err := s.locks.Acquire(ctx, tableID)
	if err != nil {
		return nil, err
	}
	defer releaseTable()

	table, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.BranchID != req.BranchID {
		return nil, ErrTableNotFound
	}
	if enum.TableStatusRetired(table.Status) {
		return nil, fmt.Errorf("table %s: %w", table.TableNumber, ErrTableRetired)
	}

	existing, err := s.store.GetActiveOrderByTable(ctx, tableID)
	switch {
	case err == nil:
		// Second order on an occupied table becomes an append.
		result, err := s.appendLocked(ctx, req.BranchID, existing.ID, prepared)
		if err != nil {
			return nil, err
		}
		result.Appended = true
		s.bc.OrderUpdated(req.BranchID, result)
		return result, nil
	case errors.Is(err, pgx.ErrNoRows):
		// fresh order below
	default:
		return nil, fmt.Errorf("get active order: %w", err)
	}

	if table.Status != enum.TableStatusFree {
		return nil, fmt.Errorf("table %s: %w", table.TableNumber, ErrTableNotFree)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	result, err := insertOrder(ctx, store, req, pgtype.UUID{Bytes: tableID, Valid: true}, prepared)
	if err != nil {
		return nil, err
	}

	occupied, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     tableID,
		Status: enum.TableStatusOccupied,
	})
	if err != nil {
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.bc.OrderCreated(req.BranchID, result)
	s.bc.TablesChanged(req.BranchID, []TableResult{{Table: occupied, ActiveOrder: result}})
	return result, nil
}

// AppendItems adds lines to an existing order and recomputes its total.
func (s *OrderService) AppendItems(ctx context.Context, req AppendItemsRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	prepared, err := s.resolveItems(ctx, req.BranchID, req.Items)
	if err != nil {
		return nil, err
	}

	result, err := s.appendLocked(ctx, req.BranchID, req.OrderID, prepared)
	if err != nil {
		return nil, err
	}

	s.bc.OrderUpdated(req.BranchID, result)
	return result, nil
}

// appendLocked runs the append critical section: it takes the order lock,
// re-reads the order fresh inside the transaction, inserts the new lines
// and recomputes the total from the complete item set. Two concurrent
// appends therefore always land on top of each other instead of losing
// one another's items or totals.
func (s *OrderService) appendLocked(ctx context.Context, branchID, orderID uuid.UUID, prepared []preparedItem) (*OrderResult, error) {
	release, err := s.locks.Acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != branchID {
		return nil, ErrOrderNotFound
	}
	if enum.OrderStatusTerminal(order.Status) {
		return nil, ErrOrderClosed
	}

	for _, pi := range prepared {
		pi.params.OrderID = order.ID
		if _, err := store.CreateOrderItem(ctx, pi.params); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(numericToDecimal(it.LineTotal))
	}

	updated, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          order.ID,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{
		Order:         updated,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}, nil
}

// SetStatus moves an order through its lifecycle. Completion marks the
// order paid; completion and cancellation both release a bound table back
// to free.
func (s *OrderService) SetStatus(ctx context.Context, req SetStatusRequest) (*OrderResult, error) {
	if !isValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.PaymentStatus != "" &&
		req.PaymentStatus != enum.PaymentStatusUnpaid &&
		req.PaymentStatus != enum.PaymentStatusPaid {
		return nil, ErrInvalidPaymentStatus
	}

	// Peek at the order to learn its table binding; locks go table first,
	// order second, the same order the create path uses.
	peek, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if peek.BranchID != req.BranchID {
		return nil, ErrOrderNotFound
	}

	if peek.TableID.Valid {
		releaseTable, err := s.locks.Acquire(ctx, peek.TableID.Bytes)
		if err != nil {
			return nil, err
		}
		defer releaseTable()
	}
	release, err := s.locks.Acquire(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if enum.OrderStatusTerminal(order.Status) {
		return nil, ErrOrderClosed
	}
	if err := validateOrderTransition(order.Status, req.Status); err != nil {
		return nil, err
	}

	payment := order.PaymentStatus
	if req.PaymentStatus != "" {
		payment = req.PaymentStatus
	}
	if req.Status == enum.OrderStatusCompleted {
		payment = enum.PaymentStatusPaid
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:            order.ID,
		Status:        req.Status,
		PaymentStatus: payment,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	var freedTable *database.FloorTable
	if enum.OrderStatusTerminal(req.Status) && order.TableID.Valid {
		t, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     order.TableID.Bytes,
			Status: enum.TableStatusFree,
		})
		if err != nil {
			return nil, fmt.Errorf("release table: %w", err)
		}
		freedTable = &t
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{
		Order:         updated,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}
	s.bc.OrderUpdated(req.BranchID, result)
	if freedTable != nil {
		s.bc.TablesChanged(req.BranchID, []TableResult{{Table: *freedTable}})
	}
	return result, nil
}

// Get returns one order with items.
func (s *OrderService) Get(ctx context.Context, branchID, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != branchID {
		return nil, ErrOrderNotFound
	}
	items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{
		Order:         order,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}, nil
}

// List returns branch orders filtered by status and type.
func (s *OrderService) List(ctx context.Context, req ListOrdersRequest) ([]OrderResult, error) {
	if req.Status != "" && req.Status != "active" && !isValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.OrderType != "" && req.OrderType != enum.OrderTypeDineIn && req.OrderType != enum.OrderTypeTakeaway {
		return nil, ErrInvalidOrderType
	}

	orders, err := s.store.ListOrders(ctx, database.ListOrdersParams{
		BranchID:  req.BranchID,
		Status:    req.Status,
		OrderType: req.OrderType,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	results := make([]OrderResult, 0, len(orders))
	for _, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		results = append(results, OrderResult{
			Order:         o,
			Items:         items,
			KitchenStatus: DeriveKitchenStatus(items),
		})
	}
	return results, nil
}

// resolveItems looks up catalog data and prices every requested line.
// It runs against the pool, outside any lock or transaction: price
// computation never holds a per-entity lock across catalog I/O.
func (s *OrderService) resolveItems(ctx context.Context, branchID uuid.UUID, items []OrderItemRequest) ([]preparedItem, error) {
	prepared := make([]preparedItem, 0, len(items))

	for i, item := range items {
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		menuItem, err := s.store.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if menuItem.BranchID != branchID {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
		}

		dbGroups, err := s.store.ListModifierGroupsByMenuItem(ctx, menuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: list modifier groups: %w", i, err)
		}
		groups := make([]pricing.Group, len(dbGroups))
		for j, g := range dbGroups {
			groups[j] = pricing.Group{
				ID:           g.ID,
				Name:         g.Name,
				Kind:         g.Kind,
				MinSelection: g.MinSelection,
				MaxSelection: g.MaxSelection,
			}
		}

		selections := make([]pricing.Selection, 0, len(item.ModifierIDs))
		for j, modID := range item.ModifierIDs {
			id, err := uuid.Parse(modID)
			if err != nil {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrInvalidModifierID)
			}
			mod, err := s.store.GetModifierForOrder(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierNotFound)
				}
				return nil, fmt.Errorf("item[%d].modifiers[%d]: get modifier: %w", i, j, err)
			}
			if mod.MenuItemID != menuItemID {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierMismatch)
			}
			var weight int32
			if mod.WeightGrams.Valid {
				weight = mod.WeightGrams.Int32
			}
			selections = append(selections, pricing.Selection{
				ModifierID:  mod.ID,
				GroupID:     mod.GroupID,
				Name:        mod.Name,
				Price:       numericToDecimal(mod.Price),
				WeightGrams: weight,
			})
		}

		basePrice := numericToDecimal(menuItem.Price)
		lineTotal, normalized, err := pricing.Quote(basePrice, item.Quantity, groups, selections)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		snapshot, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: marshal modifiers: %w", i, err)
		}

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}

		prepared = append(prepared, preparedItem{
			params: database.CreateOrderItemParams{
				MenuItemID:  menuItemID,
				Quantity:    item.Quantity,
				PriceAtTime: decimalToNumeric(basePrice),
				LineTotal:   decimalToNumeric(lineTotal),
				Modifiers:   snapshot,
				Notes:       notes,
				Status:      enum.OrderItemStatusNew,
			},
			lineTotal: lineTotal,
		})
	}
	return prepared, nil
}

// insertOrder writes a new order and its lines inside the caller's
// transaction. The total is the sum of the prepared line totals.
func insertOrder(ctx context.Context, store OrderStore, req CreateOrderRequest, tableID pgtype.UUID, prepared []preparedItem) (*OrderResult, error) {
	total := decimal.Zero
	for _, pi := range prepared {
		total = total.Add(pi.lineTotal)
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}
	createdBy := pgtype.UUID{}
	if req.CreatedBy != uuid.Nil {
		createdBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:      req.BranchID,
		TableID:       tableID,
		Status:        enum.OrderStatusNew,
		PaymentStatus: enum.PaymentStatusUnpaid,
		TotalAmount:   decimalToNumeric(total),
		Notes:         notes,
		CreatedBy:     createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(prepared))
	for _, pi := range prepared {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	return &OrderResult{
		Order:         order,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}, nil
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusNew, enum.OrderStatusPrep, enum.OrderStatusReady,
		enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// validateOrderTransition enforces the order-level machine: forward moves
// only, cancellation from any non-terminal state.
func validateOrderTransition(current, next string) error {
	if next == enum.OrderStatusCancelled {
		return nil
	}
	rank := map[string]int{
		enum.OrderStatusNew:       0,
		enum.OrderStatusPrep:      1,
		enum.OrderStatusReady:     2,
		enum.OrderStatusCompleted: 3,
	}
	cr, ok := rank[current]
	if !ok {
		return ErrInvalidTransition
	}
	nr, ok := rank[next]
	if !ok {
		return ErrInvalidTransition
	}
	if nr <= cr {
		return ErrInvalidTransition
	}
	return nil
}
