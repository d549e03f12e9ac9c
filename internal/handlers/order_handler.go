// Package handlers exposes the HTTP surface. Handlers decode credentials and
// request bodies, delegate to the services, and render the {order, errors[]}
// envelope; no business rule lives here.
package handlers

import (
	"errors"
	"net/http"

	"tickethub/internal/cache"
	"tickethub/internal/orders"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// actorFrom builds the acting identity from the request's auth record. The
// core never sees credentials, only this projection.
func actorFrom(e *core.RequestEvent) models.Actor {
	if e.Auth == nil {
		return models.Actor{}
	}
	return models.Actor{ID: e.Auth.Id, Admin: e.Auth.GetBool("is_admin")}
}

var errorStatusCodes = map[status.Kind]int{
	status.KindNotFound:              http.StatusNotFound,
	status.KindValidation:            http.StatusUnprocessableEntity,
	status.KindSalesWindowClosed:     http.StatusUnprocessableEntity,
	status.KindInsufficientInventory: http.StatusUnprocessableEntity,
	status.KindInvalidStatus:         http.StatusUnprocessableEntity,
	status.KindAmountMismatch:        http.StatusUnprocessableEntity,
	status.KindPaymentDeclined:       http.StatusUnprocessableEntity,
	status.KindForbidden:             http.StatusForbidden,
	status.KindUnauthenticated:       http.StatusUnauthorized,
}

// renderServiceError maps an expected service failure onto the error
// envelope. Anything else is an internal error and stays opaque.
func renderServiceError(e *core.RequestEvent, err error) error {
	var serr *status.Error
	if !errors.As(err, &serr) {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}

	code, ok := errorStatusCodes[serr.Kind]
	if !ok {
		code = http.StatusUnprocessableEntity
	}
	return e.JSON(code, map[string]any{
		"order":  nil,
		"errors": []string{serr.Message},
	})
}

type OrderHandler struct {
	app     *pocketbase.PocketBase
	store   store.Store
	cache   *cache.QueryCache
	creates *orders.CreateService
	cancels *orders.CancelService
	pays    *orders.PayService
}

func NewOrderHandler(
	app *pocketbase.PocketBase,
	st store.Store,
	queryCache *cache.QueryCache,
	creates *orders.CreateService,
	cancels *orders.CancelService,
	pays *orders.PayService,
) *OrderHandler {
	return &OrderHandler{
		app:     app,
		store:   st,
		cache:   queryCache,
		creates: creates,
		cancels: cancels,
		pays:    pays,
	}
}

// Create - POST /api/orders
func (h *OrderHandler) Create(e *core.RequestEvent) error {
	var req struct {
		TicketBatchID string `json:"ticket_batch_id"`
		Quantity      int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	order, err := h.creates.Call(e.Request.Context(), orders.CreateRequest{
		Actor:         actorFrom(e),
		TicketBatchID: req.TicketBatchID,
		Quantity:      req.Quantity,
	})
	if err != nil {
		return renderServiceError(e, err)
	}
	return e.JSON(http.StatusCreated, map[string]any{"order": order, "errors": []string{}})
}

// Cancel - POST /api/orders/{orderId}/cancel
func (h *OrderHandler) Cancel(e *core.RequestEvent) error {
	order, err := h.cancels.Call(e.Request.Context(), orders.CancelRequest{
		Actor:   actorFrom(e),
		OrderID: e.Request.PathValue("orderId"),
	})
	if err != nil {
		return renderServiceError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"order": order, "errors": []string{}})
}

// Pay - POST /api/orders/{orderId}/pay
func (h *OrderHandler) Pay(e *core.RequestEvent) error {
	var req struct {
		Amount        string `json:"amount"`
		PaymentMethod string `json:"payment_method"`
		ForcedOutcome string `json:"force_payment_status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return apis.NewBadRequestError("Invalid amount", err)
		}
		amount = &parsed
	}

	order, err := h.pays.Call(e.Request.Context(), orders.PayRequest{
		Actor:         actorFrom(e),
		OrderID:       e.Request.PathValue("orderId"),
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
		ForcedOutcome: req.ForcedOutcome,
	})
	if err != nil {
		return renderServiceError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"order": order, "errors": []string{}})
}

// Show - GET /api/orders/{orderId}
func (h *OrderHandler) Show(e *core.RequestEvent) error {
	actor := actorFrom(e)
	orderID := e.Request.PathValue("orderId")
	ctx := e.Request.Context()
	key := cache.OrderKey(orderID)

	var order *models.Order
	var cached models.Order
	if h.cache.Get(ctx, key, &cached) {
		order = &cached
	} else {
		loaded, err := h.store.OrderByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return renderServiceError(e, status.ErrOrderNotFound)
		}
		if err != nil {
			return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
		}

		loaded.Tickets, err = h.store.TicketsByOrder(ctx, loaded.ID)
		if err != nil {
			return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
		}
		h.cache.Set(ctx, key, loaded)
		order = loaded
	}

	// authorization applies to cached reads too
	if !actor.Admin && !order.OwnedBy(actor.ID) {
		return renderServiceError(e, status.ErrForbidden)
	}
	return e.JSON(http.StatusOK, map[string]any{"order": order, "errors": []string{}})
}

// MyOrders - GET /api/orders
func (h *OrderHandler) MyOrders(e *core.RequestEvent) error {
	actor := actorFrom(e)
	ctx := e.Request.Context()
	key := cache.OrdersKey(actor.ID)

	var list []models.Order
	if h.cache.Get(ctx, key, &list) {
		return e.JSON(http.StatusOK, map[string]any{"orders": list})
	}

	err := h.app.DB().
		Select("*").
		From("orders").
		Where(dbx.HashExp{"user_id": actor.ID}).
		OrderBy("created DESC").
		WithContext(ctx).
		All(&list)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}

	h.cache.Set(ctx, key, list)
	return e.JSON(http.StatusOK, map[string]any{"orders": list})
}

// AllOrders - GET /api/admin/orders
func (h *OrderHandler) AllOrders(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	var list []models.Order
	err := h.app.DB().
		Select("*").
		From("orders").
		OrderBy("created DESC").
		WithContext(e.Request.Context()).
		All(&list)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"orders": list})
}

// MyTickets - GET /api/tickets
func (h *OrderHandler) MyTickets(e *core.RequestEvent) error {
	var list []models.Ticket
	err := h.app.DB().
		Select("*").
		From("tickets").
		Where(dbx.HashExp{"user_id": actorFrom(e).ID}).
		OrderBy("created DESC").
		WithContext(e.Request.Context()).
		All(&list)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"tickets": list})
}
