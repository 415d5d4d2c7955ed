package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/metrics"
)

// EventPublisher sends domain events to the broker. amqp.Client satisfies
// it; services accept nil and then publish nothing.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// CacheInvalidator drops cached per-user read models after a write.
type CacheInvalidator interface {
	Invalidate(userID string)
}

// publishEvent builds and publishes an event. Failures are logged and
// counted but never returned: the write that produced the event has
// already been committed.
func publishEvent(ctx context.Context, publisher EventPublisher, m *metrics.Metrics, eventType, userID string, payload any) {
	if publisher == nil {
		return
	}

	ev, err := amqp.NewEvent(eventType, userID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "type", eventType, "error", err)
		return
	}

	err = publisher.Publish(ctx, ev)
	m.IncrEventPublished(eventType, err)
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			"type", eventType,
			"event_id", ev.ID,
			"error", err)
	}
}
