package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tably-pos/api/internal/service"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
// Satisfied by *service.KitchenService; narrow interface for testability.
type KitchenServicer interface {
	SetItemStatus(ctx context.Context, branchID, itemID uuid.UUID, status string) (*service.OrderResult, error)
	Bump(ctx context.Context, branchID, orderID uuid.UUID) (*service.OrderResult, error)
}

// KitchenHandler handles the kitchen display endpoints. Routes are wired
// by the router: item status under /order-items, bump under /orders.
type KitchenHandler struct {
	svc KitchenServicer
}

func NewKitchenHandler(svc KitchenServicer) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

type updateItemStatusRequest struct {
	Status string `json:"status"`
}

// UpdateItemStatus handles PATCH /branches/{bid}/order-items/{id}/status.
func (h *KitchenHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.SetItemStatus(r.Context(), branchID, itemID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Bump handles POST /branches/{bid}/orders/{id}/bump.
func (h *KitchenHandler) Bump(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.Bump(r.Context(), branchID, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}
