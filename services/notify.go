package services

import (
	"context"

	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/store"
)

// notifier delivers post-commit side effects. Failures are logged and never
// returned, so a committed change is never reported as failed.
type notifier struct {
	bus   realtime.Bus
	sink  events.Sink
	inbox store.INotificationStorage
	log   logger.ILogger
}

func (n notifier) publish(ctx context.Context, orderID uint, kind realtime.Kind, payload interface{}) {
	if n.bus == nil {
		return
	}
	ev, err := realtime.NewEvent(kind, payload)
	if err != nil {
		n.log.Warning("failed to encode realtime event", logger.Uint("order_id", orderID), logger.String("kind", string(kind)), logger.Error(err))
		return
	}
	if err := n.bus.Publish(ctx, realtime.OrderChannel(orderID), ev); err != nil {
		n.log.Warning("failed to publish realtime event", logger.Uint("order_id", orderID), logger.String("kind", string(kind)), logger.Error(err))
	}
}

func (n notifier) emit(ctx context.Context, ev events.Lifecycle) {
	if err := n.sink.Emit(ctx, ev); err != nil {
		n.log.Warning("failed to emit lifecycle event", logger.Uint("order_id", ev.OrderID), logger.String("type", string(ev.Type)), logger.Error(err))
	}
}

// remember files an inbox entry for the order's owner.
func (n notifier) remember(ctx context.Context, o *models.Order, kind models.NotificationType, title, message string) {
	if n.inbox == nil {
		return
	}
	orderID := o.ID
	err := n.inbox.Create(ctx, &models.Notification{
		UserID:  o.UserID,
		OrderID: &orderID,
		Type:    kind,
		Title:   title,
		Message: message,
	})
	if err != nil {
		n.log.Warning("failed to store notification", logger.Uint("order_id", o.ID), logger.Uint("user_id", o.UserID), logger.Error(err))
	}
}
