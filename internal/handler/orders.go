package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tably-pos/api/internal/middleware"
	"github.com/tably-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	AppendItems(ctx context.Context, req service.AppendItemsRequest) (*service.OrderResult, error)
	SetStatus(ctx context.Context, req service.SetStatusRequest) (*service.OrderResult, error)
	Get(ctx context.Context, branchID, orderID uuid.UUID) (*service.OrderResult, error)
	List(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AppendItems)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request types ---

type orderItemRequest struct {
	MenuItemID  string   `json:"menu_item_id"`
	Quantity    int32    `json:"quantity"`
	ModifierIDs []string `json:"modifier_ids"`
	Notes       string   `json:"notes"`
}

type createOrderRequest struct {
	OrderType string             `json:"order_type"`
	TableID   string             `json:"table_id"`
	Notes     string             `json:"notes"`
	Items     []orderItemRequest `json:"items"`
}

type appendItemsRequest struct {
	Items []orderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func toServiceItems(items []orderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(items))
	for i, it := range items {
		out[i] = service.OrderItemRequest{
			MenuItemID:  it.MenuItemID,
			Quantity:    it.Quantity,
			ModifierIDs: it.ModifierIDs,
			Notes:       it.Notes,
		}
	}
	return out
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders. On a table with an active
// order the call appends to it and responds 200 instead of 201.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "menu_item_id is required")})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:  branchID,
		CreatedBy: claims.UserID,
		OrderType: req.OrderType,
		TableID:   req.TableID,
		Notes:     req.Notes,
		Items:     toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Appended {
		status = http.StatusOK
	}
	writeJSON(w, status, toOrderResponse(result))
}

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", idx, msg)
}

// List handles GET /branches/{bid}/orders with optional status and type
// filters; status=active selects every non-terminal order.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	results, err := h.svc.List(r.Context(), service.ListOrdersRequest{
		BranchID:  branchID,
		Status:    r.URL.Query().Get("status"),
		OrderType: r.URL.Query().Get("type"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]orderResponse, len(results))
	for i := range results {
		resp[i] = toOrderResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Get(r.Context(), branchID, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// AppendItems handles POST /branches/{bid}/orders/{id}/items.
func (h *OrderHandler) AppendItems(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req appendItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "menu_item_id is required")})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
	}

	result, err := h.svc.AppendItems(r.Context(), service.AppendItemsRequest{
		BranchID: branchID,
		OrderID:  orderID,
		Items:    toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /branches/{bid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.SetStatus(r.Context(), service.SetStatusRequest{
		BranchID:      branchID,
		OrderID:       orderID,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}
