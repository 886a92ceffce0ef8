package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
)

// Start recovers interrupted work and begins dispatching tasks.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.dispatcher.Start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}
	if err := m.Recover(ctx); err != nil {
		m.Stop()
		return err
	}

	reapCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	m.wg.Add(1)
	go m.reapStale(reapCtx)
	return nil
}

// Stop cancels in-flight runs and waits for them to record their outcome.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.dispatcher.Stop()
}

// Running reports whether the manager is dispatching tasks.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Recover fails tasks left processing by a crashed process and
// re-dispatches tasks still pending.
func (m *Manager) Recover(ctx context.Context) error {
	if _, err := m.heartbeat.FailStaleTasks(ctx, m.logger, string(services.KindInternal), queue.DaemonStopMessage); err != nil {
		return fmt.Errorf("recover stale tasks: %w", err)
	}
	pending, err := m.store.ListByStatus(ctx, queue.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	for _, task := range pending {
		err := m.dispatcher.Enqueue(Job{TaskID: task.ID, SourceReference: task.SourceReference})
		if err != nil && !errors.Is(err, ErrAlreadyQueued) {
			return fmt.Errorf("dispatch pending task %s: %w", task.ID, err)
		}
	}
	if len(pending) > 0 {
		m.logger.Info("re-dispatched pending tasks",
			logging.Int("count", len(pending)),
			logging.String(logging.FieldEventType, "pending_tasks_dispatched"),
		)
	}
	return nil
}

// reapStale periodically fails tasks whose heartbeat expired, covering runs
// orphaned after startup recovery already ran.
func (m *Manager) reapStale(ctx context.Context) {
	defer m.wg.Done()
	interval := m.heartbeat.heartbeatTimeout / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.heartbeat.FailStaleTasks(ctx, m.logger, string(services.KindInternal), queue.DaemonStopMessage); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(m.logger, "stale task sweep failed", "stale_sweep_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check queue database access"),
					logging.String(logging.FieldImpact, "orphaned tasks stay processing until the next sweep"),
				)
			}
		}
	}
}

func (m *Manager) runJob(ctx context.Context, job Job) {
	_ = m.Run(ctx, job)
}
