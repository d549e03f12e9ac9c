// Package inventory owns the available-ticket counts of ticket batches.
// Reserve and Release are the only code paths that write those counts.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"
)

// Ledger gates reservations on the sale window and delegates the atomic
// check-then-decrement to the store. Construct it on the transaction-scoped
// store so the reservation commits with the rest of the unit of work.
type Ledger struct {
	store store.Store
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// Reserve takes qty tickets out of the batch and returns the batch as read
// at reservation time, so callers can snapshot its price. Outcomes:
// ErrTicketBatchNotFound, ErrSalesWindowClosed, or an insufficient-inventory
// error reporting requested vs. available.
func (l *Ledger) Reserve(ctx context.Context, batchID string, qty int) (*models.TicketBatch, error) {
	batch, err := l.store.TicketBatchByID(ctx, batchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrTicketBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: load batch %s: %w", batchID, err)
	}

	if !batch.SaleOpen(time.Now().UTC()) {
		return nil, status.ErrSalesWindowClosed
	}

	ok, err := l.store.DeductAvailableTickets(ctx, batchID, qty)
	if err != nil {
		return nil, fmt.Errorf("inventory: reserve %d from batch %s: %w", qty, batchID, err)
	}
	if !ok {
		return nil, status.InsufficientInventory(qty, batch.AvailableTickets)
	}

	batch.AvailableTickets -= qty
	return batch, nil
}

// Release returns qty tickets to the batch. Used only by cancellation.
func (l *Ledger) Release(ctx context.Context, batchID string, qty int) error {
	err := l.store.RestoreAvailableTickets(ctx, batchID, qty)
	if errors.Is(err, store.ErrNotFound) {
		return status.ErrTicketBatchNotFound
	}
	if err != nil {
		return fmt.Errorf("inventory: release %d to batch %s: %w", qty, batchID, err)
	}
	return nil
}
