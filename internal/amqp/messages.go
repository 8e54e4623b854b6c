package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ezfin/internal/core"
)

// Routing keys on the direct exchange.
const (
	RoutingTransactionCreated   = "transaction.created"
	RoutingSubscriptionReminder = "subscription.reminder"
)

// TransactionCreatedMessage only identifies the row; consumers load the
// current state from the database.
type TransactionCreatedMessage struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(userID, transactionID string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" || msg.UserID == "" {
		return nil, fmt.Errorf("transaction message missing ids")
	}
	return &msg, nil
}

// SubscriptionReminderMessage carries everything a notifier needs, since
// reminders are advisory and not tied to a later database read.
type SubscriptionReminderMessage struct {
	SubscriptionID string            `json:"subscriptionId"`
	UserID         string            `json:"userId"`
	Name           string            `json:"name"`
	Amount         core.Money        `json:"amount"`
	BillingCycle   core.BillingCycle `json:"billingCycle"`
	DueAt          core.Date         `json:"dueAt"`
	DaysUntilDue   int               `json:"daysUntilDue"`
	Timestamp      time.Time         `json:"timestamp"`
}

func NewSubscriptionReminderMessage(sub core.Subscription, today core.Date) *SubscriptionReminderMessage {
	return &SubscriptionReminderMessage{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Name:           sub.Name,
		Amount:         sub.Amount,
		BillingCycle:   sub.BillingCycle,
		DueAt:          sub.NextDueAt,
		DaysUntilDue:   int(sub.NextDueAt.Sub(today.Time).Hours() / 24),
		Timestamp:      time.Now().UTC(),
	}
}

func (m *SubscriptionReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SubscriptionReminderMessageFromJSON(data []byte) (*SubscriptionReminderMessage, error) {
	var msg SubscriptionReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
