package service

import "github.com/google/uuid"

// Broadcaster fans domain events out to every terminal subscribed to a
// branch. Delivery is fire-and-forget: a disconnected terminal reconciles
// by refetching full state on reconnect, so payloads always carry the
// full updated entity rather than a diff.
type Broadcaster interface {
	OrderCreated(branchID uuid.UUID, order *OrderResult)
	OrderUpdated(branchID uuid.UUID, order *OrderResult)
	TablesChanged(branchID uuid.UUID, tables []TableResult)
	MenuChanged(branchID uuid.UUID)
}

// NopBroadcaster discards events; used by tests and the seeder.
type NopBroadcaster struct{}

func (NopBroadcaster) OrderCreated(uuid.UUID, *OrderResult)    {}
func (NopBroadcaster) OrderUpdated(uuid.UUID, *OrderResult)    {}
func (NopBroadcaster) TablesChanged(uuid.UUID, []TableResult)  {}
func (NopBroadcaster) MenuChanged(uuid.UUID)                   {}
