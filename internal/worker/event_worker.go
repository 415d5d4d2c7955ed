package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"fintrack/internal/amqp"
)

// Consumer delivers events for the given routing keys until ctx is done.
// *amqp.Client implements it.
type Consumer interface {
	Run(ctx context.Context, routingKeys []string, handler amqp.Handler) error
}

// EventHandler is a service that reacts to some event types.
type EventHandler interface {
	RoutingKeys() []string
	HandleEvent(ctx context.Context, ev amqp.Event) error
}

// EventWorker binds the queue to every routing key its handlers declare and
// dispatches each event to the handlers registered for its type.
type EventWorker struct {
	consumer Consumer
	routes   map[string][]EventHandler
}

func NewEventWorker(consumer Consumer, handlers ...EventHandler) *EventWorker {
	routes := make(map[string][]EventHandler)
	for _, h := range handlers {
		for _, key := range h.RoutingKeys() {
			routes[key] = append(routes[key], h)
		}
	}
	return &EventWorker{consumer: consumer, routes: routes}
}

// RoutingKeys returns the sorted union of the handlers' routing keys.
func (w *EventWorker) RoutingKeys() []string {
	keys := make([]string, 0, len(w.routes))
	for key := range w.routes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *EventWorker) Run(ctx context.Context) error {
	keys := w.RoutingKeys()
	if len(keys) == 0 {
		return fmt.Errorf("event worker has no routing keys")
	}

	slog.InfoContext(ctx, "Event worker started", "routing_keys", keys)

	err := w.consumer.Run(ctx, keys, w.Dispatch)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}

	slog.InfoContext(ctx, "Event worker stopped")
	return nil
}

// Dispatch hands ev to every handler registered for its type and joins
// their errors. Events nobody handles are acknowledged and dropped.
func (w *EventWorker) Dispatch(ctx context.Context, ev amqp.Event) error {
	handlers := w.routes[ev.Type]
	if len(handlers) == 0 {
		slog.WarnContext(ctx, "No handler for event, dropping",
			"event_id", ev.ID,
			"event_type", ev.Type)
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h.HandleEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
