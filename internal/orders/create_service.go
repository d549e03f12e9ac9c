package orders

import (
	"context"
	"log/slog"
	"time"

	"tickethub/internal/inventory"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/internal/ticketing"
	"tickethub/models"
	"tickethub/monitoring"

	"github.com/shopspring/decimal"
)

// CreateService places an order: it reserves inventory, snapshots the batch
// price into the order total, and mints the tickets, all in one transaction.
type CreateService struct {
	store       store.Store
	invalidator Invalidator
	notifier    Notifier
}

func NewCreateService(st store.Store, invalidator Invalidator, notifier Notifier) *CreateService {
	return &CreateService{store: st, invalidator: invalidator, notifier: notifier}
}

type CreateRequest struct {
	Actor         models.Actor
	TicketBatchID string
	Quantity      int
}

func (s *CreateService) Call(ctx context.Context, req CreateRequest) (*models.Order, error) {
	started := time.Now()

	order, batch, err := s.call(ctx, req)

	monitoring.TrackOrderOperation("create", outcomeLabel(err))
	monitoring.ObserveOrderDuration("create", time.Since(started))
	if err != nil {
		return nil, err
	}

	monitoring.TrackReservation("reserve", order.Quantity)
	slog.Info("order created",
		"order_id", order.ID,
		"user_id", order.UserID,
		"ticket_batch_id", order.TicketBatchID,
		"quantity", order.Quantity,
		"total_price", order.TotalPrice.String(),
	)

	if s.invalidator != nil {
		s.invalidator.OrderChanged(ctx, order)
		s.invalidator.BatchChanged(ctx, batch)
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

func (s *CreateService) call(ctx context.Context, req CreateRequest) (*models.Order, *models.TicketBatch, error) {
	if req.Actor.ID == "" {
		return nil, nil, status.ErrUnauthenticated
	}
	if req.Quantity <= 0 {
		return nil, nil, status.Validation("Quantity must be greater than 0")
	}

	var order *models.Order
	var batch *models.TicketBatch

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		ledger := inventory.NewLedger(tx)

		var err error
		batch, err = ledger.Reserve(ctx, req.TicketBatchID, req.Quantity)
		if err != nil {
			return err
		}

		order = &models.Order{
			UserID:        req.Actor.ID,
			TicketBatchID: batch.ID,
			Quantity:      req.Quantity,
			TotalPrice:    batch.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
			Status:        models.OrderPending,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		tickets, err := ticketing.NewIssuer(tx).Issue(ctx, order, batch.EventID, req.Quantity, batch.Price)
		if err != nil {
			return err
		}
		order.Tickets = tickets
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, batch, nil
}
