// Package ticketing mints ticket records for paid-for seats.
package ticketing

import (
	"context"
	"fmt"

	"tickethub/internal/store"
	"tickethub/models"

	"github.com/shopspring/decimal"
)

// Issuer creates ticket records for an order. Construct it on the
// transaction-scoped store: ticket numbers come from a counter bumped in the
// same transaction, so they stay unique and monotonic even when several
// orders are being created at once, and a failed insert rolls the whole
// order (including its reservation) back.
type Issuer struct {
	store store.Store
}

func NewIssuer(st store.Store) *Issuer {
	return &Issuer{store: st}
}

// Issue mints exactly qty tickets for the order, each carrying unitPrice,
// the batch price read at reservation time and never re-read later.
func (i *Issuer) Issue(ctx context.Context, order *models.Order, eventID string, qty int, unitPrice decimal.Decimal) ([]*models.Ticket, error) {
	tickets := make([]*models.Ticket, 0, qty)

	for n := 0; n < qty; n++ {
		seq, err := i.store.NextTicketSequence(ctx)
		if err != nil {
			return nil, fmt.Errorf("ticketing: next sequence: %w", err)
		}

		tickets = append(tickets, &models.Ticket{
			OrderID:      order.ID,
			UserID:       order.UserID,
			EventID:      eventID,
			TicketNumber: FormatTicketNumber(seq),
			Price:        unitPrice,
		})
	}

	if err := i.store.InsertTickets(ctx, tickets); err != nil {
		return nil, fmt.Errorf("ticketing: persist tickets for order %s: %w", order.ID, err)
	}

	return tickets, nil
}

// FormatTicketNumber renders a sequence value as the human-readable ticket
// number printed on the ticket.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("TKT-%08d", seq)
}
