package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tickethub/internal/payment"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"
	"tickethub/monitoring"

	"github.com/shopspring/decimal"
)

// PayService settles a pending order through the payment gateway. The
// authorization call runs inside the order transaction, so a decline leaves
// the order pending and its reservation intact.
type PayService struct {
	store       store.Store
	gateway     payment.Gateway
	invalidator Invalidator
	notifier    Notifier
}

func NewPayService(st store.Store, gateway payment.Gateway, invalidator Invalidator, notifier Notifier) *PayService {
	return &PayService{store: st, gateway: gateway, invalidator: invalidator, notifier: notifier}
}

type PayRequest struct {
	Actor   models.Actor
	OrderID string

	// Amount, when given, must equal the order total exactly.
	Amount *decimal.Decimal

	PaymentMethod string
	ForcedOutcome string
}

func (s *PayService) Call(ctx context.Context, req PayRequest) (*models.Order, error) {
	started := time.Now()

	order, err := s.call(ctx, req)

	monitoring.TrackOrderOperation("pay", outcomeLabel(err))
	monitoring.ObserveOrderDuration("pay", time.Since(started))
	if err != nil {
		return nil, err
	}

	slog.Info("order paid",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total_price", order.TotalPrice.String(),
	)

	if s.invalidator != nil {
		s.invalidator.OrderChanged(ctx, order)
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

func (s *PayService) call(ctx context.Context, req PayRequest) (*models.Order, error) {
	method := req.PaymentMethod
	if method == "" {
		method = payment.MethodTest
	}

	var order *models.Order

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
		if req.Amount != nil && !req.Amount.Equal(order.TotalPrice) {
			return status.ErrAmountMismatch
		}

		outcome, err := s.gateway.Authorize(ctx, order.TotalPrice, method, req.ForcedOutcome)
		if err != nil {
			return fmt.Errorf("orders: authorize payment for order %s: %w", order.ID, err)
		}
		monitoring.TrackPayment(method, string(outcome))
		if outcome == payment.OutcomeDeclined {
			return status.ErrPaymentDeclined
		}

		ok, err := tx.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderPaid)
		if err != nil {
			return fmt.Errorf("orders: mark order %s paid: %w", order.ID, err)
		}
		if !ok {
			// lost the race against a concurrent pay or cancel
			return status.ErrInvalidStatus
		}
		order.Status = models.OrderPaid

		order.Tickets, err = tx.TicketsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("orders: load tickets for order %s: %w", order.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
