package cache

import (
	"context"
	"fmt"

	"tickethub/models"
)

// Key builders shared by handlers (when populating) and the invalidator
// (when dropping).
func EventKey(eventID string) string {
	return "event:" + eventID
}

func EventsQueryKey(filter string) string {
	return "events_query:" + filter
}

func BatchesKey(eventID string) string {
	return fmt.Sprintf("ticket_batches:event_%s:all", eventID)
}

func OrdersKey(userID string) string {
	return "orders:user_" + userID
}

func OrderKey(orderID string) string {
	return "order:" + orderID
}

// Invalidator drops the cache entries a committed write made stale. Called
// by the order services after commit, never inside the transaction.
type Invalidator struct {
	cache *QueryCache
}

func NewInvalidator(cache *QueryCache) *Invalidator {
	return &Invalidator{cache: cache}
}

func (i *Invalidator) OrderChanged(ctx context.Context, order *models.Order) {
	if i == nil || i.cache == nil {
		return
	}
	i.cache.Delete(ctx, OrderKey(order.ID))
	i.cache.DeletePattern(ctx, "orders:*")
}

func (i *Invalidator) BatchChanged(ctx context.Context, batch *models.TicketBatch) {
	if i == nil || i.cache == nil {
		return
	}
	i.cache.DeletePattern(ctx, fmt.Sprintf("ticket_batches:event_%s:*", batch.EventID))
	i.cache.Delete(ctx, EventKey(batch.EventID))
	i.cache.DeletePattern(ctx, "events_query:*")
}

func (i *Invalidator) EventChanged(ctx context.Context, eventID string) {
	if i == nil || i.cache == nil {
		return
	}
	i.cache.Delete(ctx, EventKey(eventID))
	i.cache.DeletePattern(ctx, "events_query:*")
	i.cache.DeletePattern(ctx, fmt.Sprintf("ticket_batches:event_%s:*", eventID))
}
