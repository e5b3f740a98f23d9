package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	BranchID     uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	PinHash      pgtype.Text
	Role         string
	CreatedAt    time.Time
}

type FloorTable struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	TableNumber   string
	Capacity      int32
	Status        string
	MergedFrom    []uuid.UUID
	ParentTableID pgtype.UUID
	PosX          int32
	PosY          int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MenuItem struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Category pgtype.Text
	Price    pgtype.Numeric
	Color    pgtype.Text
	Active   bool
}

type ModifierGroup struct {
	ID           uuid.UUID
	MenuItemID   uuid.UUID
	Name         string
	Kind         string
	MinSelection int32
	MaxSelection int32
	Position     int32
}

type Modifier struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Price       pgtype.Numeric
	WeightGrams pgtype.Int4
	Position    int32
}

type Order struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	TableID       pgtype.UUID
	Status        string
	PaymentStatus string
	TotalAmount   pgtype.Numeric
	Notes         pgtype.Text
	CreatedBy     pgtype.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem snapshots price and modifiers at order time; only Status is
// mutable afterwards. Modifiers holds the raw JSON selection array.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	MenuItemID  uuid.UUID
	Quantity    int32
	PriceAtTime pgtype.Numeric
	LineTotal   pgtype.Numeric
	Modifiers   []byte
	Notes       pgtype.Text
	Status      string
	CreatedAt   time.Time
}
