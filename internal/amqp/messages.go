package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published on the exchange. They double as routing keys.
const (
	EventTransactionCreated = "transaction.created"
	EventGoalCompleted      = "goal.completed"
)

// Event is the envelope for every message on the bus. Payload holds the
// type-specific body and is decoded with Decode.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"userId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// TransactionCreated is published for every transaction materialized from a
// recurring rule.
type TransactionCreated struct {
	TransactionID string `json:"transactionId"`
	RuleID        string `json:"ruleId,omitempty"`
	Type          string `json:"type"`
	AmountCents   int64  `json:"amountCents"`
	Date          string `json:"date"`
}

// GoalCompleted is published once, on the contribution that reaches the
// goal's target.
type GoalCompleted struct {
	GoalID        string `json:"goalId"`
	Name          string `json:"name"`
	TargetAmount  int64  `json:"targetAmount"`
	CurrentAmount int64  `json:"currentAmount"`
}

func NewEvent(eventType, userID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

func EventFromJSON(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return ev, nil
}
