package workflow

import (
	"context"
	"errors"
	"log/slog"

	"podcastforge/internal/logging"
	"podcastforge/internal/notifications"
)

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if logger == nil {
		logger = m.logger
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, notification skipped", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "user was not notified"),
		)
	}
}
