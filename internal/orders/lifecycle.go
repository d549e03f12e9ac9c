// Package orders implements the order lifecycle: creation reserves inventory
// and mints tickets, payment and cancellation move a pending order into its
// terminal state. Each service call is one store transaction; read-side cache
// invalidation and user notification run only after a successful commit.
package orders

import (
	"context"

	"tickethub/internal/status"
	"tickethub/models"
)

// Invalidator drops cached read-side entries touched by a committed change.
// Implementations must be best-effort: a failed invalidation is logged, never
// surfaced to the caller.
type Invalidator interface {
	OrderChanged(ctx context.Context, order *models.Order)
	BatchChanged(ctx context.Context, batch *models.TicketBatch)
}

// Notifier pushes an order's new state to its owner.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

// authorize enforces the admin-or-owner rule. Authentication is decided
// first, so an anonymous caller gets the login prompt rather than a leak of
// whether the order exists.
func authorize(actor models.Actor, order *models.Order) error {
	if actor.ID == "" {
		return status.ErrUnauthenticated
	}
	if actor.Admin || order.OwnedBy(actor.ID) {
		return nil
	}
	return status.ErrForbidden
}

// outcomeLabel maps a service result onto a metrics label.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := status.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
