package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

type Order struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	TicketBatchID string          `db:"ticket_batch_id" json:"ticket_batch_id"`
	Quantity      int             `db:"quantity" json:"quantity"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	Status        OrderStatus     `db:"status" json:"status"`
	Created       types.DateTime  `db:"created" json:"created"`
	Updated       types.DateTime  `db:"updated" json:"updated"`

	Tickets []*Ticket `db:"-" json:"tickets,omitempty"`
}

// Actor is the authenticated identity acting on an order. Credential decoding
// happens at the route boundary; the core only makes authorization decisions.
type Actor struct {
	ID    string
	Admin bool
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}
