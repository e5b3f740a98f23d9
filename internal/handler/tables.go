package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/service"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService; narrow interface for testability.
type TableServicer interface {
	ListActive(ctx context.Context, branchID uuid.UUID) ([]service.TableResult, error)
	Join(ctx context.Context, branchID uuid.UUID, tableIDs []uuid.UUID) (*service.TableResult, error)
	Split(ctx context.Context, branchID, tableID uuid.UUID, count int32) ([]service.TableResult, error)
}

// TableCreator defines the database methods needed by the plain create
// endpoint. Satisfied by *database.Queries.
type TableCreator interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.FloorTable, error)
}

// TableHandler handles floor table endpoints.
type TableHandler struct {
	svc   TableServicer
	store TableCreator
	bc    service.Broadcaster
}

func NewTableHandler(svc TableServicer, store TableCreator, bc service.Broadcaster) *TableHandler {
	return &TableHandler{svc: svc, store: store, bc: bc}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/join", h.Join)
	r.Post("/{id}/split", h.Split)
}

// --- Request types ---

type createTableRequest struct {
	TableNumber string `json:"table_number"`
	Capacity    int32  `json:"capacity"`
	PosX        int32  `json:"pos_x"`
	PosY        int32  `json:"pos_y"`
}

type joinTablesRequest struct {
	TableIDs []string `json:"table_ids"`
}

type splitTableRequest struct {
	Count int32 `json:"count"`
}

// --- Handlers ---

// List handles GET /branches/{bid}/tables: the floor view, every active
// table with its active order embedded.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	results, err := h.svc.ListActive(r.Context(), branchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]tableResponse, len(results))
	for i, t := range results {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /branches/{bid}/tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TableNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is required"})
		return
	}
	if req.Capacity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be >= 1"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		BranchID:    branchID,
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
		Status:      enum.TableStatusFree,
		PosX:        req.PosX,
		PosY:        req.PosY,
	})
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result := service.TableResult{Table: table}
	h.bc.TablesChanged(branchID, []service.TableResult{result})
	writeJSON(w, http.StatusCreated, toTableResponse(result))
}

// Join handles POST /branches/{bid}/tables/join.
func (h *TableHandler) Join(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	var req joinTablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ids := make([]uuid.UUID, len(req.TableIDs))
	for i, s := range req.TableIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
			return
		}
		ids[i] = id
	}

	result, err := h.svc.Join(r.Context(), branchID, ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(*result))
}

// Split handles POST /branches/{bid}/tables/{id}/split.
func (h *TableHandler) Split(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req splitTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	results, err := h.svc.Split(r.Context(), branchID, tableID, req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]tableResponse, len(results))
	for i, t := range results {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusCreated, resp)
}
