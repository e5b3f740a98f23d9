package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/lock"
)

// TableStore defines the DB methods needed by the table registry.
// Satisfied by *database.Queries (and its WithTx variant).
type TableStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.FloorTable, error)
	ListActiveTables(ctx context.Context, branchID uuid.UUID) ([]database.FloorTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.FloorTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.FloorTable, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TableResult is a table with its active order attached, the shape the
// floor view consumes.
type TableResult struct {
	Table       database.FloorTable
	ActiveOrder *OrderResult
}

// TableService owns the table lifecycle: free/occupied flips are driven
// by the order ledger, join and split live here.
type TableService struct {
	pool     TxBeginner
	store    TableStore
	newStore NewTableStore
	locks    *lock.Registry
	bc       Broadcaster
}

func NewTableService(pool TxBeginner, store TableStore, newStore NewTableStore, locks *lock.Registry, bc Broadcaster) *TableService {
	return &TableService{pool: pool, store: store, newStore: newStore, locks: locks, bc: bc}
}

// ListActive returns the branch's non-retired tables, each with its
// active order (if any) embedded.
func (s *TableService) ListActive(ctx context.Context, branchID uuid.UUID) ([]TableResult, error) {
	tables, err := s.store.ListActiveTables(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	results := make([]TableResult, 0, len(tables))
	for _, t := range tables {
		res := TableResult{Table: t}
		order, err := s.store.GetActiveOrderByTable(ctx, t.ID)
		switch {
		case err == nil:
			items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
			if err != nil {
				return nil, fmt.Errorf("list order items: %w", err)
			}
			res.ActiveOrder = &OrderResult{
				Order:         order,
				Items:         items,
				KitchenStatus: DeriveKitchenStatus(items),
			}
		case errors.Is(err, pgx.ErrNoRows):
			// table is clear
		default:
			return nil, fmt.Errorf("get active order: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Join merges two or more free tables into one new table. The inputs are
// retired with status merged; the new table carries their ids for audit
// linkage and becomes the one terminals use from here on.
func (s *TableService) Join(ctx context.Context, branchID uuid.UUID, tableIDs []uuid.UUID) (*TableResult, error) {
	if len(tableIDs) < 2 {
		return nil, ErrJoinCount
	}
	seen := make(map[uuid.UUID]bool, len(tableIDs))
	for _, id := range tableIDs {
		if seen[id] {
			return nil, ErrDuplicateTable
		}
		seen[id] = true
	}

	release, err := s.locks.AcquireMany(ctx, tableIDs)
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

	tables := make([]database.FloorTable, 0, len(tableIDs))
	for _, id := range tableIDs {
		t, err := store.GetTable(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("table %s: %w", id, ErrTableNotFound)
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		if t.BranchID != branchID {
			return nil, fmt.Errorf("table %s: %w", id, ErrTableNotFound)
		}
		if t.Status != enum.TableStatusFree {
			return nil, fmt.Errorf("table %s: %w", t.TableNumber, ErrTableNotFree)
		}
		tables = append(tables, t)
	}

	sortTablesNaturally(tables)

	numbers := make([]string, len(tables))
	var capacity int32
	for i, t := range tables {
		numbers[i] = t.TableNumber
		capacity += t.Capacity
	}

	joined, err := store.CreateTable(ctx, database.CreateTableParams{
		BranchID:    branchID,
		TableNumber: strings.Join(numbers, "-"),
		Capacity:    capacity,
		Status:      enum.TableStatusFree,
		MergedFrom:  tableIDs,
		PosX:        tables[0].PosX,
		PosY:        tables[0].PosY,
	})
	if err != nil {
		return nil, fmt.Errorf("create joined table: %w", err)
	}

	for _, t := range tables {
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     t.ID,
			Status: enum.TableStatusMerged,
		}); err != nil {
			return nil, fmt.Errorf("retire table %s: %w", t.TableNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &TableResult{Table: joined}
	s.bc.TablesChanged(branchID, []TableResult{*result})
	return result, nil
}

// Split retires one free table and creates count children labelled with
// letter suffixes. Each child gets floor(capacity/count) seats; the
// remainder is deliberately lost, matching the physical act of pulling a
// pushed-together table apart.
func (s *TableService) Split(ctx context.Context, branchID, tableID uuid.UUID, count int32) ([]TableResult, error) {
	if count < 2 {
		return nil, ErrSplitCount
	}

	release, err := s.locks.Acquire(ctx, tableID)
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

	parent, err := store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if parent.BranchID != branchID {
		return nil, ErrTableNotFound
	}
	if parent.Status != enum.TableStatusFree {
		return nil, fmt.Errorf("table %s: %w", parent.TableNumber, ErrTableNotFree)
	}
	// Every child needs at least one seat.
	if count > parent.Capacity {
		return nil, fmt.Errorf("table %s seats %d: %w", parent.TableNumber, parent.Capacity, ErrSplitCount)
	}

	childCapacity := parent.Capacity / count

	results := make([]TableResult, 0, count)
	for i := int32(0); i < count; i++ {
		child, err := store.CreateTable(ctx, database.CreateTableParams{
			BranchID:      branchID,
			TableNumber:   parent.TableNumber + splitSuffix(i),
			Capacity:      childCapacity,
			Status:        enum.TableStatusFree,
			ParentTableID: pgtype.UUID{Bytes: parent.ID, Valid: true},
			PosX:          parent.PosX,
			PosY:          parent.PosY,
		})
		if err != nil {
			return nil, fmt.Errorf("create child table: %w", err)
		}
		results = append(results, TableResult{Table: child})
	}

	if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     parent.ID,
		Status: enum.TableStatusSplit,
	}); err != nil {
		return nil, fmt.Errorf("retire table %s: %w", parent.TableNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.bc.TablesChanged(branchID, results)
	return results, nil
}

// splitSuffix returns a, b, ... z, aa, ab, ... for child table labels.
func splitSuffix(i int32) string {
	s := ""
	for {
		s = string(rune('a'+i%26)) + s
		i = i/26 - 1
		if i < 0 {
			return s
		}
	}
}
