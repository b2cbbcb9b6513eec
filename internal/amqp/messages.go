package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a subscription lifecycle change.
type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventEnded       EventType = "ended"
	EventReactivated EventType = "reactivated"
	EventDeleted     EventType = "deleted"
)

// SubscriptionEvent announces a lifecycle change. Consumers re-read the
// subscription if they need more than these fields.
type SubscriptionEvent struct {
	Type           EventType `json:"type"`
	SubscriptionID string    `json:"subscriptionId"`
	Name           string    `json:"name"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// PaymentDueMessage asks for a reminder about one upcoming charge.
type PaymentDueMessage struct {
	SubscriptionID string    `json:"subscriptionId"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	DueDate        string    `json:"dueDate"` // YYYY-MM-DD
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	DaysUntil      int       `json:"daysUntil"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m PaymentDueMessage) Validate() error {
	if m.SubscriptionID == "" {
		return fmt.Errorf("payment due message: missing subscription id")
	}
	if _, err := time.Parse("2006-01-02", m.DueDate); err != nil {
		return fmt.Errorf("payment due message: bad due date %q: %w", m.DueDate, err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m PaymentDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (e SubscriptionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentDueMessageFromJSON decodes and validates a delivery body.
func PaymentDueMessageFromJSON(data []byte) (*PaymentDueMessage, error) {
	var msg PaymentDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
