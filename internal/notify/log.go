package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher is the fallback sink used when no AMQP URL is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, event Event) error {
	slog.InfoContext(ctx, "notification event",
		"type", event.Type,
		"user_id", event.UserID,
		"title", event.Title,
		"target_url", event.TargetURL)
	return nil
}
