package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/middleware"
	"github.com/tably-pos/api/internal/service"
)

// mockTableServicer implements TableServicer with configurable behavior.
type mockTableServicer struct {
	listActiveFn func(ctx context.Context, branchID uuid.UUID) ([]service.TableResult, error)
	joinFn       func(ctx context.Context, branchID uuid.UUID, tableIDs []uuid.UUID) (*service.TableResult, error)
	splitFn      func(ctx context.Context, branchID, tableID uuid.UUID, count int32) ([]service.TableResult, error)
}

func (m *mockTableServicer) ListActive(ctx context.Context, branchID uuid.UUID) ([]service.TableResult, error) {
	return m.listActiveFn(ctx, branchID)
}
func (m *mockTableServicer) Join(ctx context.Context, branchID uuid.UUID, tableIDs []uuid.UUID) (*service.TableResult, error) {
	return m.joinFn(ctx, branchID, tableIDs)
}
func (m *mockTableServicer) Split(ctx context.Context, branchID, tableID uuid.UUID, count int32) ([]service.TableResult, error) {
	return m.splitFn(ctx, branchID, tableID, count)
}

// mockTableCreator implements TableCreator.
type mockTableCreator struct {
	createTableFn func(ctx context.Context, arg database.CreateTableParams) (database.FloorTable, error)
}

func (m *mockTableCreator) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.FloorTable, error) {
	return m.createTableFn(ctx, arg)
}

func setupTableRouter(svc *mockTableServicer, store *mockTableCreator, bc service.Broadcaster) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/branches/{bid}/tables", NewTableHandler(svc, store, bc).RegisterRoutes)
	return r
}

func TestListTablesHandler(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID)

	svc := &mockTableServicer{
		listActiveFn: func(ctx context.Context, bid uuid.UUID) ([]service.TableResult, error) {
			return []service.TableResult{
				{Table: database.FloorTable{
					ID: uuid.New(), BranchID: branchID, TableNumber: "1",
					Capacity: 2, Status: enum.TableStatusFree,
				}},
				{
					Table: database.FloorTable{
						ID: uuid.New(), BranchID: branchID, TableNumber: "2",
						Capacity: 4, Status: enum.TableStatusOccupied,
					},
					ActiveOrder: sampleOrderResult(branchID),
				},
			}, nil
		},
	}

	router := setupTableRouter(svc, &mockTableCreator{}, service.NopBroadcaster{})
	rec := doAuthRequest(t, router, http.MethodGet, "/branches/"+branchID.String()+"/tables", nil, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp []tableResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("tables = %d, want 2", len(resp))
	}
	if resp[0].ActiveOrder != nil {
		t.Error("free table should have no active order")
	}
	if resp[1].ActiveOrder == nil {
		t.Fatal("occupied table should embed its order")
	}
	if resp[1].ActiveOrder.TotalAmount != "23.00" {
		t.Errorf("embedded total = %q, want 23.00", resp[1].ActiveOrder.TotalAmount)
	}
}

func TestCreateTableHandler(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID)
	bc := &captureBroadcaster{}

	store := &mockTableCreator{
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.FloorTable, error) {
			if arg.Status != enum.TableStatusFree {
				t.Errorf("status = %q, want free", arg.Status)
			}
			return database.FloorTable{
				ID: uuid.New(), BranchID: arg.BranchID, TableNumber: arg.TableNumber,
				Capacity: arg.Capacity, Status: arg.Status,
			}, nil
		},
	}

	router := setupTableRouter(&mockTableServicer{}, store, bc)
	body := map[string]interface{}{"table_number": "12", "capacity": 4}
	rec := doAuthRequest(t, router, http.MethodPost, "/branches/"+branchID.String()+"/tables", body, claims)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if bc.tablesChanged != 1 {
		t.Errorf("tables_changed broadcasts = %d, want 1", bc.tablesChanged)
	}
}

func TestCreateTableHandlerValidation(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID)
	router := setupTableRouter(&mockTableServicer{}, &mockTableCreator{}, service.NopBroadcaster{})
	path := "/branches/" + branchID.String() + "/tables"

	for name, body := range map[string]map[string]interface{}{
		"missing number": {"capacity": 4},
		"zero capacity":  {"table_number": "9", "capacity": 0},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doAuthRequest(t, router, http.MethodPost, path, body, claims)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestJoinTablesHandler(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID)
	idA, idB := uuid.New(), uuid.New()

	svc := &mockTableServicer{
		joinFn: func(ctx context.Context, bid uuid.UUID, tableIDs []uuid.UUID) (*service.TableResult, error) {
			if len(tableIDs) != 2 {
				t.Errorf("ids = %d, want 2", len(tableIDs))
			}
			return &service.TableResult{Table: database.FloorTable{
				ID: uuid.New(), BranchID: branchID, TableNumber: "3-4",
				Capacity: 6, Status: enum.TableStatusFree,
				MergedFrom: tableIDs,
			}}, nil
		},
	}

	router := setupTableRouter(svc, &mockTableCreator{}, service.NopBroadcaster{})
	body := map[string]interface{}{"table_ids": []string{idA.String(), idB.String()}}
	rec := doAuthRequest(t, router, http.MethodPost, "/branches/"+branchID.String()+"/tables/join", body, claims)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp tableResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TableNumber != "3-4" || resp.Capacity != 6 {
		t.Errorf("joined = %s/%d, want 3-4/6", resp.TableNumber, resp.Capacity)
	}
}

func TestJoinTablesHandlerConflict(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID)

	svc := &mockTableServicer{
		joinFn: func(ctx context.Context, bid uuid.UUID, tableIDs []uuid.UUID) (*service.TableResult, error) {
			return nil, service.ErrTableNotFree
		},
	}

	router := setupTableRouter(svc, &mockTableCreator{}, service.NopBroadcaster{})
	body := map[string]interface{}{"table_ids": []string{uuid.NewString(), uuid.NewString()}}
	rec := doAuthRequest(t, router, http.MethodPost, "/branches/"+branchID.String()+"/tables/join", body, claims)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestSplitTableHandler(t *testing.T) {
	branchID := uuid.New()
	tableID := uuid.New()
	claims := testClaims(branchID)

	svc := &mockTableServicer{
		splitFn: func(ctx context.Context, bid, tid uuid.UUID, count int32) ([]service.TableResult, error) {
			if count != 2 {
				t.Errorf("count = %d, want 2", count)
			}
			return []service.TableResult{
				{Table: database.FloorTable{ID: uuid.New(), TableNumber: "7a", Capacity: 2, Status: enum.TableStatusFree}},
				{Table: database.FloorTable{ID: uuid.New(), TableNumber: "7b", Capacity: 2, Status: enum.TableStatusFree}},
			}, nil
		},
	}

	router := setupTableRouter(svc, &mockTableCreator{}, service.NopBroadcaster{})
	body := map[string]interface{}{"count": 2}
	rec := doAuthRequest(t, router, http.MethodPost,
		"/branches/"+branchID.String()+"/tables/"+tableID.String()+"/split", body, claims)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp []tableResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].TableNumber != "7a" || resp[1].TableNumber != "7b" {
		t.Errorf("children = %+v, want 7a and 7b", resp)
	}
}
