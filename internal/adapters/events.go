// Package adapters bridges the services to optional outbound transports.
package adapters

import (
	"context"
	"log/slog"

	"ezfin/internal/amqp"
	"ezfin/internal/core"
	"ezfin/internal/services"
)

// AMQPEvents publishes service events through an AMQP client. A nil client
// turns every publish into a logged no-op, so the HTTP server runs without a
// broker.
type AMQPEvents struct {
	client *amqp.Client
}

var (
	_ services.EventPublisher    = (*AMQPEvents)(nil)
	_ services.ReminderPublisher = (*AMQPEvents)(nil)
)

func NewAMQPEvents(client *amqp.Client) *AMQPEvents {
	return &AMQPEvents{client: client}
}

// Enabled reports whether a broker is attached.
func (e *AMQPEvents) Enabled() bool {
	return e != nil && e.client != nil
}

func (e *AMQPEvents) PublishTransactionCreated(ctx context.Context, userID string, tx core.Transaction) error {
	if !e.Enabled() {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event", "transaction_id", tx.ID)
		return nil
	}
	return e.client.PublishTransactionCreated(ctx, userID, tx)
}

func (e *AMQPEvents) PublishSubscriptionReminder(ctx context.Context, sub core.Subscription, today core.Date) error {
	if !e.Enabled() {
		slog.WarnContext(ctx, "AMQP client not available, skipping reminder", "subscription_id", sub.ID)
		return nil
	}
	return e.client.PublishSubscriptionReminder(ctx, sub, today)
}

// Close closes the underlying client, if any.
func (e *AMQPEvents) Close() error {
	if !e.Enabled() {
		return nil
	}
	return e.client.Close()
}
