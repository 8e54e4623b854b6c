package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ezfin/internal/core"
	"ezfin/internal/log"
	"ezfin/internal/storage"
)

// ReminderPublisher announces subscriptions that fall due soon.
type ReminderPublisher interface {
	PublishSubscriptionReminder(ctx context.Context, sub core.Subscription, today core.Date) error
}

// ReminderProcessor finds active subscriptions due within a window and
// publishes a reminder for each. Due dates are never advanced: they stay
// whatever the user entered.
type ReminderProcessor struct {
	store      storage.SubscriptionStore
	publisher  ReminderPublisher
	windowDays int
}

func NewReminderProcessor(store storage.SubscriptionStore, publisher ReminderPublisher, windowDays int) *ReminderProcessor {
	return &ReminderProcessor{
		store:      store,
		publisher:  publisher,
		windowDays: windowDays,
	}
}

// ProcessDue publishes reminders for subscriptions due in
// [today, today+window] and returns how many were sent. A failed publish is
// logged and the scan continues.
func (p *ReminderProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now.UTC())
	until := today.AddDays(p.windowDays)

	subs, err := p.store.ActiveSubscriptionsDue(ctx, today, until)
	if err != nil {
		return 0, fmt.Errorf("failed to get due subscriptions: %w", err)
	}

	slog.InfoContext(ctx, "Processing subscription reminders",
		"due", len(subs),
		"from", today.String(),
		"to", until.String())

	sent := 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := p.publisher.PublishSubscriptionReminder(ctx, sub, today); err != nil {
			log.FromContext(ctx).WithComponent(log.ComponentReminder).ErrorContext(ctx, "Failed to publish subscription reminder",
				log.NewFields().User(sub.UserID).Entity("subscription", sub.ID).Op(log.OpRemind).Err(err).Slice()...)
			continue
		}
		sent++
	}

	slog.InfoContext(ctx, "Subscription reminders processed",
		"sent", sent,
		"failed", len(subs)-sent)
	return sent, nil
}
