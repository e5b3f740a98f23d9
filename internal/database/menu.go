package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// The engine treats the catalog as a pure lookup: every query here is
// read-only. Catalog writes belong to the admin collaborator.

const menuItemColumns = `id, branch_id, name, category, price, color, active`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.BranchID, &m.Name, &m.Category, &m.Price, &m.Color, &m.Active)
	return m, err
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1 AND active`, id)
	return scanMenuItem(row)
}

func (q *Queries) ListMenuItems(ctx context.Context, branchID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE branch_id = $1 AND active
		 ORDER BY category NULLS LAST, name`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) ListModifierGroupsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]ModifierGroup, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, menu_item_id, name, kind, min_selection, max_selection, position
		 FROM modifier_groups
		 WHERE menu_item_id = $1 ORDER BY position, name`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []ModifierGroup
	for rows.Next() {
		var g ModifierGroup
		if err := rows.Scan(&g.ID, &g.MenuItemID, &g.Name, &g.Kind, &g.MinSelection, &g.MaxSelection, &g.Position); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (q *Queries) ListModifiersByGroup(ctx context.Context, groupID uuid.UUID) ([]Modifier, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, group_id, name, price, weight_grams, position
		 FROM modifiers
		 WHERE group_id = $1 ORDER BY position, name`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []Modifier
	for rows.Next() {
		var m Modifier
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.Price, &m.WeightGrams, &m.Position); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

// GetModifierForOrderRow carries the modifier together with its owning
// group, which the pricing calculator needs for cardinality checks.
type GetModifierForOrderRow struct {
	ID           uuid.UUID
	GroupID      uuid.UUID
	MenuItemID   uuid.UUID
	Name         string
	Price        pgtype.Numeric
	WeightGrams  pgtype.Int4
	GroupName    string
	GroupKind    string
	MinSelection int32
	MaxSelection int32
}

func (q *Queries) GetModifierForOrder(ctx context.Context, id uuid.UUID) (GetModifierForOrderRow, error) {
	var r GetModifierForOrderRow
	err := q.db.QueryRow(ctx,
		`SELECT m.id, m.group_id, g.menu_item_id, m.name, m.price, m.weight_grams,
		        g.name, g.kind, g.min_selection, g.max_selection
		 FROM modifiers m
		 JOIN modifier_groups g ON g.id = m.group_id
		 WHERE m.id = $1`, id).Scan(
		&r.ID, &r.GroupID, &r.MenuItemID, &r.Name, &r.Price, &r.WeightGrams,
		&r.GroupName, &r.GroupKind, &r.MinSelection, &r.MaxSelection,
	)
	return r, err
}
