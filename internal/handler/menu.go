package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/service"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, branchID uuid.UUID) ([]database.MenuItem, error)
	ListModifierGroupsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.ModifierGroup, error)
	ListModifiersByGroup(ctx context.Context, groupID uuid.UUID) ([]database.Modifier, error)
}

// MenuHandler serves the read-only catalog. Catalog writes live in the
// admin backend; this surface only reads and relays refresh pings.
type MenuHandler struct {
	store MenuStore
	bc    service.Broadcaster
}

func NewMenuHandler(store MenuStore, bc service.Broadcaster) *MenuHandler {
	return &MenuHandler{store: store, bc: bc}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/menu
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/refresh", h.Refresh)
}

// --- Response types ---

type menuItemResponse struct {
	ID       uuid.UUID               `json:"id"`
	Name     string                  `json:"name"`
	Category *string                 `json:"category"`
	Price    string                  `json:"price"`
	Color    *string                 `json:"color"`
	Groups   []modifierGroupResponse `json:"modifier_groups"`
}

type modifierGroupResponse struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Kind         string             `json:"kind"`
	MinSelection int32              `json:"min_selection"`
	MaxSelection int32              `json:"max_selection"`
	Modifiers    []modifierResponse `json:"modifiers"`
}

type modifierResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	WeightGrams *int32    `json:"weight_grams,omitempty"`
}

// --- Handlers ---

// List handles GET /branches/{bid}/menu: the full active catalog with
// modifier groups and modifiers nested, the shape terminals cache.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		groups, err := h.store.ListModifierGroupsByMenuItem(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list modifier groups: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		groupResp := make([]modifierGroupResponse, 0, len(groups))
		for _, g := range groups {
			mods, err := h.store.ListModifiersByGroup(r.Context(), g.ID)
			if err != nil {
				log.Printf("ERROR: list modifiers: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			modResp := make([]modifierResponse, 0, len(mods))
			for _, m := range mods {
				var weight *int32
				if m.WeightGrams.Valid {
					grams := m.WeightGrams.Int32
					weight = &grams
				}
				modResp = append(modResp, modifierResponse{
					ID:          m.ID,
					Name:        m.Name,
					Price:       numericString(m.Price),
					WeightGrams: weight,
				})
			}
			groupResp = append(groupResp, modifierGroupResponse{
				ID:           g.ID,
				Name:         g.Name,
				Kind:         g.Kind,
				MinSelection: g.MinSelection,
				MaxSelection: g.MaxSelection,
				Modifiers:    modResp,
			})
		}

		resp = append(resp, menuItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Category: textPtr(item.Category),
			Price:    numericString(item.Price),
			Color:    textPtr(item.Color),
			Groups:   groupResp,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /branches/{bid}/menu/refresh. The admin backend
// calls it after catalog edits; terminals get a menu_changed ping and
// refetch.
func (h *MenuHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	h.bc.MenuChanged(branchID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh queued"})
}
