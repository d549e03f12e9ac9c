package models

import (
	"time"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// TicketBatch is a priced, time-windowed pool of sellable inventory for one
// event. available_tickets is only ever written through the inventory ledger.
type TicketBatch struct {
	ID               string          `db:"id" json:"id"`
	EventID          string          `db:"event_id" json:"event_id"`
	Price            decimal.Decimal `db:"price" json:"price"`
	AvailableTickets int             `db:"available_tickets" json:"available_tickets"`
	SaleStart        types.DateTime  `db:"sale_start" json:"sale_start"`
	SaleEnd          types.DateTime  `db:"sale_end" json:"sale_end"`
	Created          types.DateTime  `db:"created" json:"created"`
	Updated          types.DateTime  `db:"updated" json:"updated"`
}

// SaleOpen reports whether the batch accepts reservations at the given
// instant, i.e. sale_start <= now <= sale_end.
func (b *TicketBatch) SaleOpen(now time.Time) bool {
	if b.SaleStart.IsZero() || b.SaleEnd.IsZero() {
		return false
	}
	return !now.Before(b.SaleStart.Time()) && !now.After(b.SaleEnd.Time())
}

// Ticket is a single issued seat. The price is a snapshot of the batch price
// at issuance and never changes afterwards.
type Ticket struct {
	ID           string          `db:"id" json:"id"`
	OrderID      string          `db:"order_id" json:"order_id"`
	UserID       string          `db:"user_id" json:"user_id"`
	EventID      string          `db:"event_id" json:"event_id"`
	TicketNumber string          `db:"ticket_number" json:"ticket_number"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Created      types.DateTime  `db:"created" json:"created"`
}
