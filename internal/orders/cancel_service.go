package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tickethub/internal/inventory"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"
	"tickethub/monitoring"
)

// CancelService cancels a pending order and returns its tickets to the
// batch. The status transition and the inventory restore commit together, so
// a cancelled order can never leave inventory missing.
type CancelService struct {
	store       store.Store
	invalidator Invalidator
	notifier    Notifier
}

func NewCancelService(st store.Store, invalidator Invalidator, notifier Notifier) *CancelService {
	return &CancelService{store: st, invalidator: invalidator, notifier: notifier}
}

type CancelRequest struct {
	Actor   models.Actor
	OrderID string
}

func (s *CancelService) Call(ctx context.Context, req CancelRequest) (*models.Order, error) {
	started := time.Now()

	order, batch, err := s.call(ctx, req)

	monitoring.TrackOrderOperation("cancel", outcomeLabel(err))
	monitoring.ObserveOrderDuration("cancel", time.Since(started))
	if err != nil {
		return nil, err
	}

	monitoring.TrackReservation("release", order.Quantity)
	slog.Info("order cancelled",
		"order_id", order.ID,
		"user_id", order.UserID,
		"quantity", order.Quantity,
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

func (s *CancelService) call(ctx context.Context, req CancelRequest) (*models.Order, *models.TicketBatch, error) {
	var order *models.Order
	var batch *models.TicketBatch

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		order, err = tx.OrderByID(ctx, req.OrderID)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("orders: load order %s: %w", req.OrderID, err)
		}

		if err := authorize(req.Actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return status.ErrInvalidStatus
		}

		ok, err := tx.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCancelled)
		if err != nil {
			return fmt.Errorf("orders: cancel order %s: %w", order.ID, err)
		}
		if !ok {
			// lost the race against a concurrent pay or cancel
			return status.ErrInvalidStatus
		}
		order.Status = models.OrderCancelled

		ledger := inventory.NewLedger(tx)
		if err := ledger.Release(ctx, order.TicketBatchID, order.Quantity); err != nil {
			return err
		}

		batch, err = tx.TicketBatchByID(ctx, order.TicketBatchID)
		if err != nil {
			return fmt.Errorf("orders: reload batch %s: %w", order.TicketBatchID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, batch, nil
}
