package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tably-pos/api/internal/lock"
	"github.com/tably-pos/api/internal/pricing"
	"github.com/tably-pos/api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors onto the HTTP taxonomy:
// not-found 404, conflict 409, validation 400, busy 503, the rest 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrModifierNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})

	case errors.Is(err, service.ErrTableNotFree),
		errors.Is(err, service.ErrTableRetired),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrItemsNotReady),
		errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrTableRequired),
		errors.Is(err, service.ErrTableNotAllowed),
		errors.Is(err, service.ErrInvalidMenuItemID),
		errors.Is(err, service.ErrInvalidModifierID),
		errors.Is(err, service.ErrInvalidTableID),
		errors.Is(err, service.ErrModifierMismatch),
		errors.Is(err, service.ErrJoinCount),
		errors.Is(err, service.ErrDuplicateTable),
		errors.Is(err, service.ErrSplitCount),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPaymentStatus),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrUnknownGroup),
		errors.Is(err, pricing.ErrMinSelection),
		errors.Is(err, pricing.ErrMaxSelection):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.Is(err, lock.ErrBusy):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})

	default:
		log.Printf("ERROR: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// --- Shared response types ---

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	TableID       *string             `json:"table_id"`
	OrderType     string              `json:"order_type"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	KitchenStatus string              `json:"kitchen_status"`
	TotalAmount   string              `json:"total_amount"`
	Notes         *string             `json:"notes"`
	CreatedBy     *string             `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Appended      bool                `json:"appended,omitempty"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	MenuItemID  uuid.UUID       `json:"menu_item_id"`
	Quantity    int32           `json:"quantity"`
	PriceAtTime string          `json:"price_at_time"`
	LineTotal   string          `json:"line_total"`
	Modifiers   json.RawMessage `json:"modifiers,omitempty"`
	Notes       *string         `json:"notes"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type tableResponse struct {
	ID            uuid.UUID      `json:"id"`
	BranchID      uuid.UUID      `json:"branch_id"`
	TableNumber   string         `json:"table_number"`
	Capacity      int32          `json:"capacity"`
	Status        string         `json:"status"`
	MergedFrom    []string       `json:"merged_from,omitempty"`
	ParentTableID *string        `json:"parent_table_id,omitempty"`
	PosX          int32          `json:"pos_x"`
	PosY          int32          `json:"pos_y"`
	ActiveOrder   *orderResponse `json:"active_order,omitempty"`
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	items := make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		items[i] = orderItemResponse{
			ID:          it.ID,
			MenuItemID:  it.MenuItemID,
			Quantity:    it.Quantity,
			PriceAtTime: numericString(it.PriceAtTime),
			LineTotal:   numericString(it.LineTotal),
			Modifiers:   json.RawMessage(it.Modifiers),
			Notes:       textPtr(it.Notes),
			Status:      it.Status,
			CreatedAt:   it.CreatedAt,
		}
	}

	orderType := "takeaway"
	if result.Order.TableID.Valid {
		orderType = "dine_in"
	}

	return orderResponse{
		ID:            result.Order.ID,
		BranchID:      result.Order.BranchID,
		TableID:       uuidPtr(result.Order.TableID),
		OrderType:     orderType,
		Status:        result.Order.Status,
		PaymentStatus: result.Order.PaymentStatus,
		KitchenStatus: result.KitchenStatus,
		TotalAmount:   numericString(result.Order.TotalAmount),
		Notes:         textPtr(result.Order.Notes),
		CreatedBy:     uuidPtr(result.Order.CreatedBy),
		CreatedAt:     result.Order.CreatedAt,
		UpdatedAt:     result.Order.UpdatedAt,
		Appended:      result.Appended,
		Items:         items,
	}
}

func toTableResponse(result service.TableResult) tableResponse {
	resp := tableResponse{
		ID:            result.Table.ID,
		BranchID:      result.Table.BranchID,
		TableNumber:   result.Table.TableNumber,
		Capacity:      result.Table.Capacity,
		Status:        result.Table.Status,
		ParentTableID: uuidPtr(result.Table.ParentTableID),
		PosX:          result.Table.PosX,
		PosY:          result.Table.PosY,
	}
	for _, id := range result.Table.MergedFrom {
		resp.MergedFrom = append(resp.MergedFrom, id.String())
	}
	if result.ActiveOrder != nil {
		order := toOrderResponse(result.ActiveOrder)
		resp.ActiveOrder = &order
	}
	return resp
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
