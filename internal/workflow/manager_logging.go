package workflow

import (
	"context"
	"log/slog"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
)

func withTaskContext(ctx context.Context, task *queue.Task) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if task == nil {
		return ctx
	}
	ctx = services.WithTaskID(ctx, task.ID)
	return services.WithOwnerID(ctx, task.OwnerID)
}

// taskLogger returns a context-enriched logger that also writes the task's
// own log file. Callers must invoke the returned close function.
func (m *Manager) taskLogger(ctx context.Context, task *queue.Task) (*slog.Logger, func()) {
	base := m.logger
	if task != nil {
		base = base.With(logging.String(logging.FieldInputType, string(task.InputType)))
	}
	logger, closeFn, err := m.taskLogs.Open(base, taskID(task))
	if err != nil {
		logging.WarnWithContext(m.logger, "task log unavailable", "task_log_unavailable",
			logging.String(logging.FieldTaskID, taskID(task)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.log_dir permissions"),
			logging.String(logging.FieldImpact, "task events only reach the daemon log"),
		)
	}
	return logging.WithContext(ctx, logger), closeFn
}

func taskID(task *queue.Task) string {
	if task == nil {
		return ""
	}
	return task.ID
}
