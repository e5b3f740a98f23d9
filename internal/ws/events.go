package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tably-pos/api/internal/service"
)

// Event types pushed to terminals.
const (
	EventOrderCreated  = "order_created"
	EventOrderUpdated  = "order_updated"
	EventTablesChanged = "tables_changed"
	EventMenuChanged   = "menu_changed"
)

// Publisher adapts the hub to the service layer's Broadcaster interface.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) OrderCreated(branchID uuid.UUID, order *service.OrderResult) {
	p.publish(branchID, EventOrderCreated, orderEventPayload(order))
}

func (p *Publisher) OrderUpdated(branchID uuid.UUID, order *service.OrderResult) {
	p.publish(branchID, EventOrderUpdated, orderEventPayload(order))
}

func (p *Publisher) TablesChanged(branchID uuid.UUID, tables []service.TableResult) {
	payload := make([]tableEvent, len(tables))
	for i, t := range tables {
		payload[i] = tableEventPayload(t)
	}
	p.publish(branchID, EventTablesChanged, payload)
}

func (p *Publisher) MenuChanged(branchID uuid.UUID) {
	p.publish(branchID, EventMenuChanged, struct{}{})
}

func (p *Publisher) publish(branchID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	p.hub.BroadcastToBranch(branchID, Event{Type: eventType, Payload: raw})
}

// orderEvent is the wire shape of an order; amounts travel as strings so
// terminals never round them through floats.
type orderEvent struct {
	ID            string           `json:"id"`
	BranchID      string           `json:"branch_id"`
	TableID       *string          `json:"table_id,omitempty"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	KitchenStatus string           `json:"kitchen_status"`
	TotalAmount   string           `json:"total_amount"`
	Notes         *string          `json:"notes,omitempty"`
	Items         []orderItemEvent `json:"items"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type orderItemEvent struct {
	ID          string          `json:"id"`
	MenuItemID  string          `json:"menu_item_id"`
	Quantity    int32           `json:"quantity"`
	PriceAtTime string          `json:"price_at_time"`
	LineTotal   string          `json:"line_total"`
	Modifiers   json.RawMessage `json:"modifiers,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	Status      string          `json:"status"`
}

type tableEvent struct {
	ID            string      `json:"id"`
	TableNumber   string      `json:"table_number"`
	Capacity      int32       `json:"capacity"`
	Status        string      `json:"status"`
	MergedFrom    []string    `json:"merged_from,omitempty"`
	ParentTableID *string     `json:"parent_table_id,omitempty"`
	PosX          int32       `json:"pos_x"`
	PosY          int32       `json:"pos_y"`
	ActiveOrder   *orderEvent `json:"active_order,omitempty"`
}

func orderEventPayload(o *service.OrderResult) orderEvent {
	items := make([]orderItemEvent, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemEvent{
			ID:          it.ID.String(),
			MenuItemID:  it.MenuItemID.String(),
			Quantity:    it.Quantity,
			PriceAtTime: numericString(it.PriceAtTime),
			LineTotal:   numericString(it.LineTotal),
			Modifiers:   json.RawMessage(it.Modifiers),
			Notes:       textPtr(it.Notes),
			Status:      it.Status,
		}
	}
	return orderEvent{
		ID:            o.Order.ID.String(),
		BranchID:      o.Order.BranchID.String(),
		TableID:       uuidPtr(o.Order.TableID),
		Status:        o.Order.Status,
		PaymentStatus: o.Order.PaymentStatus,
		KitchenStatus: o.KitchenStatus,
		TotalAmount:   numericString(o.Order.TotalAmount),
		Notes:         textPtr(o.Order.Notes),
		Items:         items,
		CreatedAt:     o.Order.CreatedAt,
		UpdatedAt:     o.Order.UpdatedAt,
	}
}

func tableEventPayload(t service.TableResult) tableEvent {
	e := tableEvent{
		ID:            t.Table.ID.String(),
		TableNumber:   t.Table.TableNumber,
		Capacity:      t.Table.Capacity,
		Status:        t.Table.Status,
		ParentTableID: uuidPtr(t.Table.ParentTableID),
		PosX:          t.Table.PosX,
		PosY:          t.Table.PosY,
	}
	for _, id := range t.Table.MergedFrom {
		e.MergedFrom = append(e.MergedFrom, id.String())
	}
	if t.ActiveOrder != nil {
		o := orderEventPayload(t.ActiveOrder)
		e.ActiveOrder = &o
	}
	return e
}

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
