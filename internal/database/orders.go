package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, branch_id, table_id, status, payment_status, total_amount, notes, created_by, created_at, updated_at`

const orderItemColumns = `id, order_id, menu_item_id, quantity, price_at_time, line_total, modifiers, notes, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.TableID, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.PriceAtTime,
		&it.LineTotal, &it.Modifiers, &it.Notes, &it.Status, &it.CreatedAt,
	)
	return it, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetActiveOrderByTable returns the single non-terminal order bound to a
// table, or pgx.ErrNoRows when the table is clear.
func (q *Queries) GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE table_id = $1 AND status NOT IN ('completed', 'cancelled')`, tableID)
	return scanOrder(row)
}

type CreateOrderParams struct {
	BranchID      uuid.UUID
	TableID       pgtype.UUID
	Status        string
	PaymentStatus string
	TotalAmount   pgtype.Numeric
	Notes         pgtype.Text
	CreatedBy     pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO orders (branch_id, table_id, status, payment_status, total_amount, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+orderColumns,
		arg.BranchID, arg.TableID, arg.Status, arg.PaymentStatus,
		arg.TotalAmount, arg.Notes, arg.CreatedBy)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	MenuItemID  uuid.UUID
	Quantity    int32
	PriceAtTime pgtype.Numeric
	LineTotal   pgtype.Numeric
	Modifiers   []byte
	Notes       pgtype.Text
	Status      string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, menu_item_id, quantity, price_at_time, line_total, modifiers, notes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.PriceAtTime,
		arg.LineTotal, arg.Modifiers, arg.Notes, arg.Status)
	return scanOrderItem(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items
		 WHERE order_id = $1 ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderTotalParams struct {
	ID          uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET total_amount = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		arg.ID, arg.TotalAmount)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID            uuid.UUID
	Status        string
	PaymentStatus string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PaymentStatus)
	return scanOrder(row)
}

type ListOrdersParams struct {
	BranchID uuid.UUID
	// Status filters by exact status, or "active" for every non-terminal
	// status. Empty means all.
	Status string
	// OrderType is dine_in, takeaway or empty. Dine-in and takeaway are
	// distinguished solely by table presence.
	OrderType string
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE branch_id = $1
		   AND ($2 = ''
		        OR ($2 = 'active' AND status NOT IN ('completed', 'cancelled'))
		        OR status = $2)
		   AND ($3 = ''
		        OR ($3 = 'takeaway' AND table_id IS NULL)
		        OR ($3 = 'dine_in' AND table_id IS NOT NULL))
		 ORDER BY created_at DESC`,
		arg.BranchID, arg.Status, arg.OrderType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id)
	return scanOrderItem(row)
}

type UpdateOrderItemStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE order_items SET status = $2
		 WHERE id = $1
		 RETURNING `+orderItemColumns,
		arg.ID, arg.Status)
	return scanOrderItem(row)
}

// MarkOrderItemsServed is the kitchen bump: every item on the ticket moves
// to served in one statement.
func (q *Queries) MarkOrderItemsServed(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_items SET status = 'served' WHERE order_id = $1`, orderID)
	return err
}
