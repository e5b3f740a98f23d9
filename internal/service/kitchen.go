package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/lock"
)

// KitchenStore defines the DB methods needed by the kitchen flow.
// Satisfied by *database.Queries (and its WithTx variant).
type KitchenStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	MarkOrderItemsServed(ctx context.Context, orderID uuid.UUID) error
}

// NewKitchenStore creates a KitchenStore from a DBTX (pool or tx).
type NewKitchenStore func(db database.DBTX) KitchenStore

// KitchenService drives line items through the kitchen: per-item status
// and the bump that marks a whole ticket served.
type KitchenService struct {
	pool     TxBeginner
	store    KitchenStore
	newStore NewKitchenStore
	locks    *lock.Registry
	bc       Broadcaster
}

func NewKitchenService(pool TxBeginner, store KitchenStore, newStore NewKitchenStore, locks *lock.Registry, bc Broadcaster) *KitchenService {
	return &KitchenService{pool: pool, store: store, newStore: newStore, locks: locks, bc: bc}
}

// SetItemStatus moves one line item through the kitchen machine. Forward
// moves are new to prep to ready; ready back to prep is the undo for a
// mis-tap. Served is reserved for the bump.
func (s *KitchenService) SetItemStatus(ctx context.Context, branchID, itemID uuid.UUID, status string) (*OrderResult, error) {
	if err := validateItemTransitionTarget(status); err != nil {
		return nil, err
	}

	// Find the owning order first; the lock lives on the order so item
	// updates and appends serialize against each other.
	peek, err := s.store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	release, err := s.locks.Acquire(ctx, peek.OrderID)
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

	order, err := store.GetOrder(ctx, peek.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != branchID {
		return nil, ErrItemNotFound
	}
	if enum.OrderStatusTerminal(order.Status) {
		return nil, ErrOrderClosed
	}

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if err := validateItemTransition(item.Status, status); err != nil {
		return nil, err
	}

	if _, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
		ID:     itemID,
		Status: status,
	}); err != nil {
		return nil, fmt.Errorf("update item status: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{
		Order:         order,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}
	s.bc.OrderUpdated(branchID, result)
	return result, nil
}

// Bump marks every item on an order served in one stroke. It refuses
// while any item is still new or in prep: the expediter bumps a ticket
// only once everything on it has come up.
func (s *KitchenService) Bump(ctx context.Context, branchID, orderID uuid.UUID) (*OrderResult, error) {
	release, err := s.locks.Acquire(ctx, orderID)
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

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != branchID {
		return nil, ErrOrderNotFound
	}
	if enum.OrderStatusTerminal(order.Status) {
		return nil, ErrOrderClosed
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, it := range items {
		if it.Status != enum.OrderItemStatusReady && it.Status != enum.OrderItemStatusServed {
			return nil, fmt.Errorf("item %s: %w", it.ID, ErrItemsNotReady)
		}
	}

	if err := store.MarkOrderItemsServed(ctx, orderID); err != nil {
		return nil, fmt.Errorf("mark items served: %w", err)
	}

	items, err = store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{
		Order:         order,
		Items:         items,
		KitchenStatus: DeriveKitchenStatus(items),
	}
	s.bc.OrderUpdated(branchID, result)
	return result, nil
}

// DeriveKitchenStatus collapses item statuses into one display value for
// the ticket: any untouched item keeps the ticket new, a ticket where
// everything has at least come up reads ready, anything in between is
// prep. An itemless order reads new.
func DeriveKitchenStatus(items []database.OrderItem) string {
	if len(items) == 0 {
		return enum.OrderStatusNew
	}
	allReady := true
	for _, it := range items {
		switch it.Status {
		case enum.OrderItemStatusNew:
			return enum.OrderStatusNew
		case enum.OrderItemStatusPrep:
			allReady = false
		}
	}
	if allReady {
		return enum.OrderStatusReady
	}
	return enum.OrderStatusPrep
}

func validateItemTransitionTarget(status string) error {
	switch status {
	case enum.OrderItemStatusNew, enum.OrderItemStatusPrep, enum.OrderItemStatusReady:
		return nil
	case enum.OrderItemStatusServed:
		// served only via bump
		return ErrInvalidTransition
	}
	return ErrInvalidStatus
}

func validateItemTransition(current, next string) error {
	allowed := map[string][]string{
		enum.OrderItemStatusNew:   {enum.OrderItemStatusPrep},
		enum.OrderItemStatusPrep:  {enum.OrderItemStatusReady},
		enum.OrderItemStatusReady: {enum.OrderItemStatusPrep},
	}
	for _, n := range allowed[current] {
		if n == next {
			return nil
		}
	}
	return ErrInvalidTransition
}
