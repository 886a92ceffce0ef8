package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
)

// HeartbeatMonitor keeps running tasks fresh and fails tasks whose process
// stopped heartbeating.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// FailStaleTasks marks processing tasks with a heartbeat older than the
// timeout as failed. Orphaned runs are never reopened.
func (h *HeartbeatMonitor) FailStaleTasks(ctx context.Context, logger *slog.Logger, kind, message string) (int64, error) {
	if h.heartbeatTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	failed, err := h.store.FailStaleProcessing(ctx, cutoff, kind, message)
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		logger.Warn("failed orphaned tasks",
			logging.Int64("count", failed),
			logging.String(logging.FieldEventType, "stale_tasks_failed"),
			logging.String(logging.FieldImpact, "interrupted tasks must be submitted again"),
		)
	}
	return failed, nil
}

// StartLoop runs a heartbeat updater for a task until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, taskID string) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, taskID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
