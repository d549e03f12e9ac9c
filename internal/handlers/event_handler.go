package handlers

import (
	"net/http"

	"tickethub/internal/cache"
	"tickethub/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// EventHandler serves the event catalog. Reads go through the redis cache;
// admin writes invalidate it explicitly after the save.
type EventHandler struct {
	app         *pocketbase.PocketBase
	cache       *cache.QueryCache
	invalidator *cache.Invalidator
}

func NewEventHandler(app *pocketbase.PocketBase, queryCache *cache.QueryCache, invalidator *cache.Invalidator) *EventHandler {
	return &EventHandler{app: app, cache: queryCache, invalidator: invalidator}
}

// List - GET /api/events?category=music
func (h *EventHandler) List(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	category := e.Request.URL.Query().Get("category")

	filter := "all"
	if category != "" {
		if !models.ValidEventCategory(category) {
			return apis.NewBadRequestError("Unknown category", nil)
		}
		filter = category
	}
	key := cache.EventsQueryKey(filter)

	var events []models.Event
	if h.cache.Get(ctx, key, &events) {
		return e.JSON(http.StatusOK, map[string]any{"events": events})
	}

	query := h.app.DB().
		Select("*").
		From("events").
		OrderBy("date ASC").
		WithContext(ctx)
	if category != "" {
		query = query.Where(dbx.HashExp{"category": category})
	}
	if err := query.All(&events); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}

	h.cache.Set(ctx, key, events)
	return e.JSON(http.StatusOK, map[string]any{"events": events})
}

// Get - GET /api/events/{eventId}
func (h *EventHandler) Get(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	eventID := e.Request.PathValue("eventId")
	key := cache.EventKey(eventID)

	var event models.Event
	if h.cache.Get(ctx, key, &event) {
		return h.renderWithBatches(e, &event)
	}

	err := h.app.DB().
		Select("*").
		From("events").
		Where(dbx.HashExp{"id": eventID}).
		WithContext(ctx).
		One(&event)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	h.cache.Set(ctx, key, event)
	return h.renderWithBatches(e, &event)
}

func (h *EventHandler) renderWithBatches(e *core.RequestEvent, event *models.Event) error {
	ctx := e.Request.Context()
	key := cache.BatchesKey(event.ID)

	var batches []models.TicketBatch
	if !h.cache.Get(ctx, key, &batches) {
		err := h.app.DB().
			Select("*").
			From("ticket_batches").
			Where(dbx.HashExp{"event_id": event.ID}).
			OrderBy("sale_start ASC").
			WithContext(ctx).
			All(&batches)
		if err != nil {
			return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
		}
		h.cache.Set(ctx, key, batches)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event":          event,
		"ticket_batches": batches,
	})
}

type eventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Place       string `json:"place"`
	Date        string `json:"date"`
	Category    string `json:"category"`
}

// Create - POST /api/admin/events
func (h *EventHandler) Create(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	var req eventRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.Name == "" {
		return apis.NewBadRequestError("Name is required", nil)
	}
	if !models.ValidEventCategory(req.Category) {
		return apis.NewBadRequestError("Unknown category", nil)
	}

	collection, err := h.app.FindCollectionByNameOrId("events")
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}

	record := core.NewRecord(collection)
	record.Set("name", req.Name)
	record.Set("description", req.Description)
	record.Set("place", req.Place)
	record.Set("date", req.Date)
	record.Set("category", req.Category)
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	h.invalidator.EventChanged(e.Request.Context(), record.Id)
	return e.JSON(http.StatusCreated, map[string]any{"id": record.Id})
}

// Update - PATCH /api/admin/events/{eventId}
func (h *EventHandler) Update(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	record, err := h.app.FindRecordById("events", e.Request.PathValue("eventId"))
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	var req eventRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.Category != "" && !models.ValidEventCategory(req.Category) {
		return apis.NewBadRequestError("Unknown category", nil)
	}

	if req.Name != "" {
		record.Set("name", req.Name)
	}
	if req.Description != "" {
		record.Set("description", req.Description)
	}
	if req.Place != "" {
		record.Set("place", req.Place)
	}
	if req.Date != "" {
		record.Set("date", req.Date)
	}
	if req.Category != "" {
		record.Set("category", req.Category)
	}
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to update event", err)
	}

	h.invalidator.EventChanged(e.Request.Context(), record.Id)
	return e.JSON(http.StatusOK, map[string]any{"id": record.Id})
}

// Delete - DELETE /api/admin/events/{eventId}
func (h *EventHandler) Delete(e *core.RequestEvent) error {
	if !actorFrom(e).Admin {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	record, err := h.app.FindRecordById("events", e.Request.PathValue("eventId"))
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}
	if err := h.app.Delete(record); err != nil {
		return apis.NewBadRequestError("Failed to delete event", err)
	}

	h.invalidator.EventChanged(e.Request.Context(), record.Id)
	return e.JSON(http.StatusOK, map[string]any{"deleted": record.Id})
}
