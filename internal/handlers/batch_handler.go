package handlers

import (
	"net/http"

	"tickethub/internal/cache"
	"tickethub/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// BatchHandler is the admin CRUD surface for ticket batches. Repricing a
// batch never touches already issued tickets: ticket prices are snapshots
// taken at order time.
type BatchHandler struct {
	app         *pocketbase.PocketBase
	invalidator *cache.Invalidator
}

func NewBatchHandler(app *pocketbase.PocketBase, invalidator *cache.Invalidator) *BatchHandler {
	return &BatchHandler{app: app, invalidator: invalidator}
}

type batchRequest struct {
	EventID          string `json:"event_id"`
	Price            string `json:"price"`
	AvailableTickets *int   `json:"available_tickets"`
	SaleStart        string `json:"sale_start"`
	SaleEnd          string `json:"sale_end"`
}

// Create - POST /api/admin/ticket-batches
func (h *BatchHandler) Create(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	var req batchRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return apis.NewBadRequestError("Invalid price", err)
	}
	if req.AvailableTickets == nil || *req.AvailableTickets < 0 {
		return apis.NewBadRequestError("available_tickets must be zero or more", nil)
	}
	if _, err := h.app.FindRecordById("events", req.EventID); err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	collection, err := h.app.FindCollectionByNameOrId("ticket_batches")
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}

	record := core.NewRecord(collection)
	record.Set("event_id", req.EventID)
	record.Set("price", price.String())
	record.Set("available_tickets", *req.AvailableTickets)
	record.Set("sale_start", req.SaleStart)
	record.Set("sale_end", req.SaleEnd)
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to create ticket batch", err)
	}

	h.invalidator.BatchChanged(e.Request.Context(), &models.TicketBatch{ID: record.Id, EventID: req.EventID})
	return e.JSON(http.StatusCreated, map[string]any{"id": record.Id})
}

// Update - PATCH /api/admin/ticket-batches/{batchId}
func (h *BatchHandler) Update(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	record, err := h.app.FindRecordById("ticket_batches", e.Request.PathValue("batchId"))
	if err != nil {
		return apis.NewNotFoundError("Ticket batch not found", err)
	}

	var req batchRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return apis.NewBadRequestError("Invalid price", err)
		}
		record.Set("price", price.String())
	}
	if req.AvailableTickets != nil {
		if *req.AvailableTickets < 0 {
			return apis.NewBadRequestError("available_tickets must be zero or more", nil)
		}
		record.Set("available_tickets", *req.AvailableTickets)
	}
	if req.SaleStart != "" {
		record.Set("sale_start", req.SaleStart)
	}
	if req.SaleEnd != "" {
		record.Set("sale_end", req.SaleEnd)
	}
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to update ticket batch", err)
	}

	h.invalidator.BatchChanged(e.Request.Context(), &models.TicketBatch{
		ID:      record.Id,
		EventID: record.GetString("event_id"),
	})
	return e.JSON(http.StatusOK, map[string]any{"id": record.Id})
}

// Delete - DELETE /api/admin/ticket-batches/{batchId}
func (h *BatchHandler) Delete(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	record, err := h.app.FindRecordById("ticket_batches", e.Request.PathValue("batchId"))
	if err != nil {
		return apis.NewNotFoundError("Ticket batch not found", err)
	}
	if err := h.app.Delete(record); err != nil {
		return apis.NewBadRequestError("Failed to delete ticket batch", err)
	}

	h.invalidator.BatchChanged(e.Request.Context(), &models.TicketBatch{
		ID:      record.Id,
		EventID: record.GetString("event_id"),
	})
	return e.JSON(http.StatusOK, map[string]any{"deleted": record.Id})
}
