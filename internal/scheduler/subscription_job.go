package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
)

// SubscriptionReminderJobName identifies the renewal-reminder sweep.
const SubscriptionReminderJobName = "subscription-reminders"

// SubscriptionReminderJob notifies users whose active subscription expires
// within the reminder window. It mutates nothing; the subscription rows are
// owned by the admin surfaces.
type SubscriptionReminderJob struct {
	subscriptions SubscriptionReminderStore
	dispatcher    notify.Dispatcher
	window        time.Duration
}

func NewSubscriptionReminderJob(subscriptions SubscriptionReminderStore, dispatcher notify.Dispatcher, window time.Duration) *SubscriptionReminderJob {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &SubscriptionReminderJob{subscriptions: subscriptions, dispatcher: dispatcher, window: window}
}

func (j *SubscriptionReminderJob) Name() string { return SubscriptionReminderJobName }

func (j *SubscriptionReminderJob) Run(ctx context.Context, now time.Time, rec *Recorder) error {
	expiring, err := j.subscriptions.ExpiringWithin(ctx, now, j.window)
	if err != nil {
		return fmt.Errorf("read expiring subscriptions: %w", err)
	}

	for _, sub := range expiring {
		event := notify.Event{
			Type:      notify.EventSubscriptionPending,
			UserID:    sub.UserID.String(),
			Title:     "Subscription expiring soon",
			Body:      fmt.Sprintf("Your plan expires on %s. Renew to keep premium features.", sub.EndDate.Format(time.DateOnly)),
			TargetURL: "/subscription",
		}
		if err := j.dispatcher.Dispatch(ctx, event); err != nil {
			rec.AddItemError(sub.ID, "subscription", err)
			continue
		}
		rec.AddReminder()
	}

	slog.Info("subscription reminders dispatched", "expiring", len(expiring))
	return nil
}
