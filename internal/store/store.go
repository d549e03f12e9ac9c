// Package store is the persistence boundary of the order engine. The Store
// interface is deliberately narrow: it exposes the atomic primitives the
// services need (conditional inventory updates, conditional status
// transitions, the ticket-number sequence) and a transaction wrapper that
// makes one request one atomic unit of work.
package store

import (
	"context"
	"errors"

	"tickethub/models"
)

// ErrNotFound is returned when a looked-up record does not exist. Services
// translate it into the caller-facing not-found outcomes.
var ErrNotFound = errors.New("store: record not found")

type Store interface {
	// RunInTransaction executes fn atomically. Everything fn does through
	// the passed Store commits together or not at all.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	TicketBatchByID(ctx context.Context, id string) (*models.TicketBatch, error)

	// DeductAvailableTickets atomically performs the check-then-decrement:
	// it subtracts qty from available_tickets only if qty is still
	// available, and reports whether it did. This is the no-oversell
	// primitive; callers must not split the check from the write.
	DeductAvailableTickets(ctx context.Context, batchID string, qty int) (bool, error)

	// RestoreAvailableTickets is the atomic inverse, used by cancellation.
	RestoreAvailableTickets(ctx context.Context, batchID string, qty int) error

	OrderByID(ctx context.Context, id string) (*models.Order, error)
	InsertOrder(ctx context.Context, order *models.Order) error

	// UpdateOrderStatus transitions the order only when its current status
	// equals from, and reports whether a row changed. Two racing
	// transitions therefore serialize: exactly one observes true.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)

	// NextTicketSequence bumps and returns the global ticket-number
	// counter. Called inside the order-creation transaction so concurrent
	// issuance never produces duplicates.
	NextTicketSequence(ctx context.Context) (int64, error)
	InsertTickets(ctx context.Context, tickets []*models.Ticket) error
	TicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error)
}
