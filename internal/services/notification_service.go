package services

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
)

const (
	NotificationGoalCompleted = "goal_completed"
	notificationListLimit     = 50
)

type NotificationStore interface {
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error)
}

// NotificationService turns domain events into in-app notifications.
type NotificationService struct {
	store   NotificationStore
	metrics *metrics.Metrics
}

func NewNotificationService(store NotificationStore, m *metrics.Metrics) *NotificationService {
	return &NotificationService{store: store, metrics: m}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]core.Notification, error) {
	return s.store.ListNotifications(ctx, userID, notificationListLimit)
}

// RoutingKeys lists the events HandleEvent understands.
func (s *NotificationService) RoutingKeys() []string {
	return []string{amqp.EventGoalCompleted, amqp.EventTransactionCreated}
}

// HandleEvent is an amqp.Handler. The notification ID is the event ID, so a
// redelivered event does not create a second notification.
func (s *NotificationService) HandleEvent(ctx context.Context, ev amqp.Event) error {
	err := s.handle(ctx, ev)
	s.metrics.IncrEventConsumed(ev.Type, err)
	return err
}

func (s *NotificationService) handle(ctx context.Context, ev amqp.Event) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker)

	switch ev.Type {
	case amqp.EventGoalCompleted:
		var p amqp.GoalCompleted
		if err := ev.Decode(&p); err != nil {
			return err
		}
		_, err := s.store.CreateNotification(ctx, core.Notification{
			ID:     ev.ID,
			UserID: ev.UserID,
			Kind:   NotificationGoalCompleted,
			Title:  "Goal reached",
			Body: fmt.Sprintf("You reached your goal %q (%s of %s).",
				p.Name, core.Money{Cents: p.CurrentAmount}, core.Money{Cents: p.TargetAmount}),
			CreatedAt: ev.OccurredAt,
		})
		if err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
		logger.InfoContext(ctx, "Goal completion notification stored",
			log.FieldGoalID, p.GoalID,
			log.FieldUserID, ev.UserID)
		return nil

	case amqp.EventTransactionCreated:
		var p amqp.TransactionCreated
		if err := ev.Decode(&p); err != nil {
			return err
		}
		logger.DebugContext(ctx, "Transaction created",
			"transaction_id", p.TransactionID,
			log.FieldRuleID, p.RuleID,
			log.FieldAmountCents, p.AmountCents)
		return nil
	}

	logger.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type)
	return nil
}
