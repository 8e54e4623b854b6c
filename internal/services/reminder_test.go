package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/core"
)

func TestReminderProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	finance := NewFinanceService(store, nil)

	for _, s := range []struct {
		user string
		in   core.SubscriptionInput
	}{
		{"u1", core.SubscriptionInput{Name: "Today", Amount: "5", BillingCycle: "monthly", NextDueAt: "2024-03-10"}},
		{"u2", core.SubscriptionInput{Name: "Edge", Amount: "5", BillingCycle: "yearly", NextDueAt: "2024-03-13"}},
		{"u1", core.SubscriptionInput{Name: "Later", Amount: "5", BillingCycle: "monthly", NextDueAt: "2024-03-14"}},
		{"u1", core.SubscriptionInput{Name: "Past", Amount: "5", BillingCycle: "monthly", NextDueAt: "2024-03-09"}},
	} {
		_, err := finance.CreateSubscription(ctx, s.user, s.in)
		require.NoError(t, err)
	}

	pub := &recordingPublisher{}
	p := NewReminderProcessor(store, pub, 3)
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	sent, err := p.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, pub.subs, 2)
	assert.Equal(t, "Today", pub.subs[0].Name)
	assert.Equal(t, "Edge", pub.subs[1].Name)

	// Running again reminds again: due dates are not advanced.
	sent, err = p.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	subs, err := finance.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	for _, s := range subs {
		if s.Name == "Today" {
			assert.Equal(t, "2024-03-10", s.NextDueAt.String())
		}
	}
}

func TestReminderProcessor_PublishFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := NewFinanceService(store, nil).CreateSubscription(ctx, "u1", core.SubscriptionInput{
		Name: "Gym", Amount: "30", BillingCycle: "monthly", NextDueAt: "2024-03-11",
	})
	require.NoError(t, err)

	p := NewReminderProcessor(store, &recordingPublisher{err: errors.New("broker down")}, 3)
	sent, err := p.ProcessDue(ctx, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	_, err := (&ReminderProcessor{}).ProcessDue(context.Background(), time.Now())
	assert.Error(t, err)
}
