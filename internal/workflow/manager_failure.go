package workflow

import (
	"context"
	"errors"
	"log/slog"

	"podcastforge/internal/logging"
	"podcastforge/internal/notifications"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
)

// handleFailure classifies runErr, persists the terminal failed state with a
// fixed user message, and emits the failure signals. Internal detail only
// reaches the logs.
func (m *Manager) handleFailure(ctx context.Context, task *queue.Task, runErr error, logger *slog.Logger) {
	kind, message := classifyFailure(ctx, runErr)
	// Shutdown cancels ctx; the outcome must still be recorded.
	persistCtx := context.WithoutCancel(ctx)

	stage := string(task.Stage)
	if current, err := m.store.GetTask(persistCtx, task.ID); err == nil && current != nil {
		stage = string(current.Stage)
	}
	logger.Error("task failed",
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.String("failed_stage", stage),
		logging.String("user_message", message),
		logging.Error(runErr),
		logging.Alert("task_failure"),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
		logging.String(logging.FieldEventType, "task_failed"),
	)

	if err := m.store.MarkFailed(persistCtx, task.ID, string(kind), message); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			logger.Info("task deleted while running; failure not persisted")
		} else {
			logger.Error("failed to persist task failure",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_failure_persist_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}
	task.Status = queue.StatusFailed
	task.Stage = queue.StageFailed
	task.ErrorKind = string(kind)
	task.ErrorMessage = message

	m.setLastError(runErr)
	m.setLastTask(task)
	m.metrics.TaskFinished(string(task.InputType), string(queue.StatusFailed), string(kind))
	m.notify(persistCtx, logger, notifications.EventTaskFailed, notifications.Payload{
		"title":     firstNonEmpty(task.EpisodeTitle, task.Title),
		"taskId":    task.ID,
		"owner":     task.OwnerID,
		"message":   message,
		"errorKind": string(kind),
	})
}

func classifyFailure(ctx context.Context, runErr error) (services.Kind, string) {
	if ctx != nil && ctx.Err() != nil {
		return services.KindInternal, queue.DaemonStopMessage
	}
	kind := services.Normalize(runErr)
	return kind, services.UserMessage(kind)
}

func hintFor(kind services.Kind) string {
	switch kind {
	case services.KindSourceFetchFailed:
		return "verify the source link is reachable and yt-dlp is current"
	case services.KindTranscriptionFailed:
		return "check the transcription gateway and its credentials"
	case services.KindAnalysisFailed:
		return "check the LLM provider, model list and quota"
	case services.KindSynthesisFailed:
		return "check the TTS gateway and ffmpeg installation"
	case services.KindStorageFailed:
		return "check object storage credentials and bucket access"
	case services.KindConfigurationMissing:
		return "set the missing api key or endpoint in config.toml"
	case services.KindInvalidInput:
		return "the submitted source is unusable; no action required"
	default:
		return "inspect the task log for the underlying error"
	}
}
