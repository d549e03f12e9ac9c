// Package notify pushes order state changes to the owner's realtime channel.
package notify

import (
	"context"
	"log/slog"

	"tickethub/models"

	pubnub "github.com/pubnub/go"
)

// Notifier publishes order status updates to the per-user channel
// ("user-<id>"). Publishing is fire-and-forget: a failed publish is logged
// and never affects the order outcome. A nil Notifier is valid and silent,
// so deployments without PubNub keys just skip realtime updates.
type Notifier struct {
	pubnub *pubnub.PubNub
}

func New(pn *pubnub.PubNub) *Notifier {
	if pn == nil {
		return nil
	}
	return &Notifier{pubnub: pn}
}

func (n *Notifier) OrderStatusChanged(ctx context.Context, order *models.Order) {
	if n == nil || n.pubnub == nil {
		return
	}

	channel := "user-" + order.UserID
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":        "order_status",
			"order_id":    order.ID,
			"status":      string(order.Status),
			"quantity":    order.Quantity,
			"total_price": order.TotalPrice.String(),
		}).
		Execute()
	if err != nil {
		slog.Warn("order notification failed",
			"channel", channel,
			"order_id", order.ID,
			"error", err,
		)
		return
	}

	slog.Debug("order notification sent", "channel", channel, "order_id", order.ID, "status", string(order.Status))
}
