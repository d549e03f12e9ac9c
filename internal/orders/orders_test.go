package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tickethub/internal/payment"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyer = models.Actor{ID: "user1"}
	other = models.Actor{ID: "user2"}
	admin = models.Actor{ID: "admin1", Admin: true}
)

func seedBatch(t *testing.T, st *store.Memory, available int) string {
	t.Helper()

	now := time.Now().UTC()
	start, err := types.ParseDateTime(now.Add(-time.Hour))
	require.NoError(t, err)
	end, err := types.ParseDateTime(now.Add(time.Hour))
	require.NoError(t, err)

	batch := models.TicketBatch{
		ID:               "batch1",
		EventID:          "event1",
		Price:            decimal.RequireFromString("50.00"),
		AvailableTickets: available,
		SaleStart:        start,
		SaleEnd:          end,
	}
	st.PutTicketBatch(batch)
	return batch.ID
}

// recorder captures post-commit side effects so tests can assert they fire
// only after a successful transaction.
type recorder struct {
	mu            sync.Mutex
	orderChanges  []string
	batchChanges  []string
	notifications []string
}

func (r *recorder) OrderChanged(ctx context.Context, order *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orderChanges = append(r.orderChanges, order.ID)
}

func (r *recorder) BatchChanged(ctx context.Context, batch *models.TicketBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchChanges = append(r.batchChanges, batch.ID)
}

func (r *recorder) OrderStatusChanged(ctx context.Context, order *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, order.ID+":"+string(order.Status))
}

type erroringGateway struct{ err error }

func (g *erroringGateway) Authorize(ctx context.Context, amount decimal.Decimal, method, forcedOutcome string) (payment.Outcome, error) {
	return payment.OutcomeDeclined, g.err
}

func TestCreateService_PlacesPendingOrder(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	rec := &recorder{}

	order, err := NewCreateService(st, rec, rec).Call(context.Background(), CreateRequest{
		Actor:         buyer,
		TicketBatchID: batchID,
		Quantity:      3,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "user1", order.UserID)
	assert.Equal(t, 3, order.Quantity)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("150.00")), "total was %s", order.TotalPrice)
	assert.Len(t, order.Tickets, 3)

	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 7, batch.AvailableTickets)

	assert.Equal(t, []string{order.ID}, rec.orderChanges)
	assert.Equal(t, []string{batchID}, rec.batchChanges)
	assert.Equal(t, []string{order.ID + ":pending"}, rec.notifications)
}

func TestCreateService_InsufficientInventory(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 2)
	rec := &recorder{}

	_, err := NewCreateService(st, rec, rec).Call(context.Background(), CreateRequest{
		Actor:         buyer,
		TicketBatchID: batchID,
		Quantity:      3,
	})
	require.Error(t, err)
	assert.Equal(t, status.KindInsufficientInventory, status.KindOf(err))
	assert.EqualError(t, err, "Quantity 3 greater than available tickets (2 available)")

	// nothing committed, nothing invalidated
	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.AvailableTickets)
	assert.Empty(t, rec.orderChanges)
	assert.Empty(t, rec.notifications)
}

func TestCreateService_QuantityValidation(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)

	for _, qty := range []int{0, -1} {
		_, err := NewCreateService(st, nil, nil).Call(context.Background(), CreateRequest{
			Actor:         buyer,
			TicketBatchID: batchID,
			Quantity:      qty,
		})
		require.Error(t, err)
		assert.Equal(t, status.KindValidation, status.KindOf(err))
		assert.EqualError(t, err, "Quantity must be greater than 0")
	}
}

func TestCreateService_UnknownBatch(t *testing.T) {
	st := store.NewMemory()

	_, err := NewCreateService(st, nil, nil).Call(context.Background(), CreateRequest{
		Actor:         buyer,
		TicketBatchID: "missing",
		Quantity:      1,
	})
	assert.ErrorIs(t, err, status.ErrTicketBatchNotFound)
}

func TestCreateService_SalesWindowClosed(t *testing.T) {
	st := store.NewMemory()

	past := time.Now().UTC().Add(-48 * time.Hour)
	start, _ := types.ParseDateTime(past)
	end, _ := types.ParseDateTime(past.Add(time.Hour))
	st.PutTicketBatch(models.TicketBatch{
		ID:               "expired",
		EventID:          "event1",
		Price:            decimal.New(10, 0),
		AvailableTickets: 10,
		SaleStart:        start,
		SaleEnd:          end,
	})

	_, err := NewCreateService(st, nil, nil).Call(context.Background(), CreateRequest{
		Actor:         buyer,
		TicketBatchID: "expired",
		Quantity:      1,
	})
	assert.ErrorIs(t, err, status.ErrSalesWindowClosed)
}

func TestCreateService_RequiresAuthentication(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)

	_, err := NewCreateService(st, nil, nil).Call(context.Background(), CreateRequest{
		TicketBatchID: batchID,
		Quantity:      1,
	})
	assert.ErrorIs(t, err, status.ErrUnauthenticated)
}

func placeOrder(t *testing.T, st *store.Memory, batchID string, qty int) *models.Order {
	t.Helper()

	order, err := NewCreateService(st, nil, nil).Call(context.Background(), CreateRequest{
		Actor:         buyer,
		TicketBatchID: batchID,
		Quantity:      qty,
	})
	require.NoError(t, err)
	return order
}

func TestPayService_MarksOrderPaid(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 2)
	rec := &recorder{}

	paid, err := NewPayService(st, payment.NewMockGateway(), rec, rec).Call(context.Background(), PayRequest{
		Actor:   buyer,
		OrderID: order.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPaid, paid.Status)
	assert.Len(t, paid.Tickets, 2)
	assert.Equal(t, []string{order.ID + ":paid"}, rec.notifications)

	stored, err := st.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, stored.Status)

	// paying does not touch inventory
	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 8, batch.AvailableTickets)
}

func TestPayService_DeclineLeavesOrderPending(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 2)
	rec := &recorder{}

	_, err := NewPayService(st, payment.NewMockGateway(), rec, rec).Call(context.Background(), PayRequest{
		Actor:         buyer,
		OrderID:       order.ID,
		PaymentMethod: payment.MethodCardDeclined,
	})
	assert.ErrorIs(t, err, status.ErrPaymentDeclined)

	stored, err := st.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)

	// the reservation stays held for a retry
	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 8, batch.AvailableTickets)
	assert.Empty(t, rec.notifications)
}

func TestPayService_ForcedFailure(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 1)

	_, err := NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{
		Actor:         buyer,
		OrderID:       order.ID,
		ForcedOutcome: payment.ForceFail,
	})
	assert.ErrorIs(t, err, status.ErrPaymentDeclined)
	assert.EqualError(t, err, "Payment declined")
}

func TestPayService_AmountMismatch(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 2)

	wrong := decimal.RequireFromString("99.99")
	_, err := NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{
		Actor:   buyer,
		OrderID: order.ID,
		Amount:  &wrong,
	})
	assert.ErrorIs(t, err, status.ErrAmountMismatch)

	exact := decimal.RequireFromString("100.00")
	paid, err := NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{
		Actor:   buyer,
		OrderID: order.ID,
		Amount:  &exact,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)
}

func TestPayService_GatewayErrorRollsBack(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 1)

	gateway := &erroringGateway{err: errors.New("provider down")}
	_, err := NewPayService(st, gateway, nil, nil).Call(context.Background(), PayRequest{
		Actor:   buyer,
		OrderID: order.ID,
	})
	require.Error(t, err)
	assert.Equal(t, status.Kind(""), status.KindOf(err), "provider errors are not business outcomes")

	stored, err := st.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)
}

func TestPayService_PriceSnapshotSurvivesBatchRepricing(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 2)

	// reprice the batch after the order was placed
	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	batch.Price = decimal.RequireFromString("80.00")
	st.PutTicketBatch(*batch)

	exact := decimal.RequireFromString("100.00")
	paid, err := NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{
		Actor:   buyer,
		OrderID: order.ID,
		Amount:  &exact,
	})
	require.NoError(t, err)
	assert.True(t, paid.TotalPrice.Equal(exact))
}

func TestCancelService_RestoresInventory(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 4)
	rec := &recorder{}

	cancelled, err := NewCancelService(st, rec, rec).Call(context.Background(), CancelRequest{
		Actor:   buyer,
		OrderID: order.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 10, batch.AvailableTickets)
	assert.Equal(t, []string{order.ID + ":cancelled"}, rec.notifications)
}

func TestTerminalOrdersRejectFurtherTransitions(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	gateway := payment.NewMockGateway()

	paidOrder := placeOrder(t, st, batchID, 1)
	_, err := NewPayService(st, gateway, nil, nil).Call(context.Background(), PayRequest{Actor: buyer, OrderID: paidOrder.ID})
	require.NoError(t, err)

	cancelledOrder := placeOrder(t, st, batchID, 1)
	_, err = NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: cancelledOrder.ID})
	require.NoError(t, err)

	tests := []struct {
		name    string
		orderID string
		call    func(orderID string) error
	}{
		{"pay a paid order", paidOrder.ID, func(id string) error {
			_, err := NewPayService(st, gateway, nil, nil).Call(context.Background(), PayRequest{Actor: buyer, OrderID: id})
			return err
		}},
		{"pay a cancelled order", cancelledOrder.ID, func(id string) error {
			_, err := NewPayService(st, gateway, nil, nil).Call(context.Background(), PayRequest{Actor: buyer, OrderID: id})
			return err
		}},
		{"cancel a paid order", paidOrder.ID, func(id string) error {
			_, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: id})
			return err
		}},
		{"cancel a cancelled order", cancelledOrder.ID, func(id string) error {
			_, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: id})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(tt.orderID), status.ErrInvalidStatus)
		})
	}

	// double-cancel must not restore inventory twice
	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 9, batch.AvailableTickets)
}

func TestAuthorization(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	order := placeOrder(t, st, batchID, 1)

	_, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: other, OrderID: order.ID})
	assert.ErrorIs(t, err, status.ErrForbidden)

	_, err = NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{Actor: other, OrderID: order.ID})
	assert.ErrorIs(t, err, status.ErrForbidden)

	_, err = NewPayService(st, payment.NewMockGateway(), nil, nil).Call(context.Background(), PayRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, status.ErrUnauthenticated)

	// admins act on any order
	cancelled, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: admin, OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
}

func TestAuthorization_UnknownOrder(t *testing.T) {
	st := store.NewMemory()

	_, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: "missing"})
	assert.ErrorIs(t, err, status.ErrOrderNotFound)
}

func TestCreateService_ConcurrentOrdersNeverOversell(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 25)
	service := NewCreateService(st, nil, nil)

	const attempts = 100
	var wg sync.WaitGroup
	var succeeded int64
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Call(context.Background(), CreateRequest{
				Actor:         buyer,
				TicketBatchID: batchID,
				Quantity:      1,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.Equal(t, status.KindInsufficientInventory, status.KindOf(err))
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 25, succeeded)

	batch, err := st.TicketBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.AvailableTickets)
}

func TestRacingPayAndCancel_ExactlyOneWins(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 10)
	gateway := payment.NewMockGateway()

	for i := 0; i < 20; i++ {
		order := placeOrder(t, st, batchID, 1)

		var wg sync.WaitGroup
		var payErr, cancelErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, payErr = NewPayService(st, gateway, nil, nil).Call(context.Background(), PayRequest{Actor: buyer, OrderID: order.ID})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: order.ID})
		}()
		wg.Wait()

		if payErr == nil {
			assert.ErrorIs(t, cancelErr, status.ErrInvalidStatus)
		} else {
			require.NoError(t, cancelErr)
			assert.ErrorIs(t, payErr, status.ErrInvalidStatus)
		}

		stored, err := st.OrderByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.True(t, stored.Status.Terminal())
	}
}

func TestFullLifecycleRoundTrip(t *testing.T) {
	st := store.NewMemory()
	batchID := seedBatch(t, st, 5)

	order := placeOrder(t, st, batchID, 5)
	batch, _ := st.TicketBatchByID(context.Background(), batchID)
	assert.Equal(t, 0, batch.AvailableTickets)

	_, err := NewCancelService(st, nil, nil).Call(context.Background(), CancelRequest{Actor: buyer, OrderID: order.ID})
	require.NoError(t, err)

	// every seat is sellable again
	again := placeOrder(t, st, batchID, 5)
	assert.Equal(t, models.OrderPending, again.Status)
}
