package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, branch_id, table_number, capacity, status, merged_from, parent_table_id, pos_x, pos_y, created_at, updated_at`

func scanTable(row pgx.Row) (FloorTable, error) {
	var t FloorTable
	err := row.Scan(
		&t.ID, &t.BranchID, &t.TableNumber, &t.Capacity, &t.Status,
		&t.MergedFrom, &t.ParentTableID, &t.PosX, &t.PosY,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (FloorTable, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM floor_tables WHERE id = $1`, id)
	return scanTable(row)
}

// ListActiveTables returns the branch's tables excluding retired
// (merged/split) ones, in display-number order.
func (q *Queries) ListActiveTables(ctx context.Context, branchID uuid.UUID) ([]FloorTable, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM floor_tables
		 WHERE branch_id = $1 AND status NOT IN ('merged', 'split')
		 ORDER BY table_number ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []FloorTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type CreateTableParams struct {
	BranchID      uuid.UUID
	TableNumber   string
	Capacity      int32
	Status        string
	MergedFrom    []uuid.UUID
	ParentTableID pgtype.UUID
	PosX          int32
	PosY          int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (FloorTable, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO floor_tables (branch_id, table_number, capacity, status, merged_from, parent_table_id, pos_x, pos_y)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+tableColumns,
		arg.BranchID, arg.TableNumber, arg.Capacity, arg.Status,
		arg.MergedFrom, arg.ParentTableID, arg.PosX, arg.PosY)
	return scanTable(row)
}

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (FloorTable, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE floor_tables SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+tableColumns,
		arg.ID, arg.Status)
	return scanTable(row)
}
