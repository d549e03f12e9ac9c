package store

import (
	"context"
	"database/sql"
	"errors"

	"tickethub/models"
	"tickethub/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const ticketNumberCounter = "ticket_number"

// AppStore implements Store on top of the PocketBase app database. Inventory
// and status writes use single conditional UPDATEs with an affected-row
// check, so concurrent callers serialize at the row without long-held locks.
type AppStore struct {
	app core.App
}

func New(app core.App) *AppStore {
	return &AppStore{app: app}
}

func (s *AppStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&AppStore{app: txApp})
	})
}

func (s *AppStore) TicketBatchByID(ctx context.Context, id string) (*models.TicketBatch, error) {
	batch := models.TicketBatch{}
	err := s.app.DB().
		Select("id", "event_id", "price", "available_tickets", "sale_start", "sale_end", "created", "updated").
		From("ticket_batches").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&batch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *AppStore) DeductAvailableTickets(ctx context.Context, batchID string, qty int) (bool, error) {
	res, err := s.app.DB().NewQuery(
		"UPDATE ticket_batches SET available_tickets = available_tickets - {:qty}, updated = {:now}" +
			" WHERE id = {:id} AND available_tickets >= {:qty}",
	).Bind(dbx.Params{
		"qty": qty,
		"id":  batchID,
		"now": types.NowDateTime(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *AppStore) RestoreAvailableTickets(ctx context.Context, batchID string, qty int) error {
	res, err := s.app.DB().NewQuery(
		"UPDATE ticket_batches SET available_tickets = available_tickets + {:qty}, updated = {:now} WHERE id = {:id}",
	).Bind(dbx.Params{
		"qty": qty,
		"id":  batchID,
		"now": types.NowDateTime(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AppStore) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	order := models.Order{}
	err := s.app.DB().
		Select("id", "user_id", "ticket_batch_id", "quantity", "total_price", "status", "created", "updated").
		From("orders").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *AppStore) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = utils.RandomID(15)
	}
	now := types.NowDateTime()
	order.Created = now
	order.Updated = now

	_, err := s.app.DB().Insert("orders", dbx.Params{
		"id":              order.ID,
		"user_id":         order.UserID,
		"ticket_batch_id": order.TicketBatchID,
		"quantity":        order.Quantity,
		"total_price":     order.TotalPrice,
		"status":          string(order.Status),
		"created":         now,
		"updated":         now,
	}).WithContext(ctx).Execute()
	return err
}

func (s *AppStore) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	res, err := s.app.DB().NewQuery(
		"UPDATE orders SET status = {:to}, updated = {:now} WHERE id = {:id} AND status = {:from}",
	).Bind(dbx.Params{
		"to":   string(to),
		"from": string(from),
		"id":   orderID,
		"now":  types.NowDateTime(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *AppStore) NextTicketSequence(ctx context.Context) (int64, error) {
	_, err := s.app.DB().NewQuery(
		"UPDATE counters SET value = value + 1 WHERE name = {:name}",
	).Bind(dbx.Params{"name": ticketNumberCounter}).WithContext(ctx).Execute()
	if err != nil {
		return 0, err
	}

	var seq int64
	err = s.app.DB().NewQuery(
		"SELECT value FROM counters WHERE name = {:name}",
	).Bind(dbx.Params{"name": ticketNumberCounter}).WithContext(ctx).Row(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *AppStore) InsertTickets(ctx context.Context, tickets []*models.Ticket) error {
	for _, ticket := range tickets {
		if ticket.ID == "" {
			ticket.ID = utils.RandomID(15)
		}
		ticket.Created = types.NowDateTime()

		_, err := s.app.DB().Insert("tickets", dbx.Params{
			"id":            ticket.ID,
			"order_id":      ticket.OrderID,
			"user_id":       ticket.UserID,
			"event_id":      ticket.EventID,
			"ticket_number": ticket.TicketNumber,
			"price":         ticket.Price,
			"created":       ticket.Created,
		}).WithContext(ctx).Execute()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AppStore) TicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error) {
	tickets := []*models.Ticket{}
	err := s.app.DB().
		Select("id", "order_id", "user_id", "event_id", "ticket_number", "price", "created").
		From("tickets").
		Where(dbx.HashExp{"order_id": orderID}).
		OrderBy("ticket_number ASC").
		WithContext(ctx).
		All(&tickets)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
