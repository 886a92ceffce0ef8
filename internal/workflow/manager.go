package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"podcastforge/internal/config"
	"podcastforge/internal/logging"
	"podcastforge/internal/metrics"
	"podcastforge/internal/notifications"
	"podcastforge/internal/queue"
)

// Manager coordinates submission, dispatch and execution of podcast tasks.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	deps     Collaborators
	logger   *slog.Logger
	notifier notifications.Service
	metrics  *metrics.Collectors

	heartbeat  *HeartbeatMonitor
	taskLogs   *TaskLogs
	dispatcher *Dispatcher

	// submitMu makes the duplicate check and insert atomic within the
	// daemon; the flock keeps a second daemon off the same store.
	submitMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastTask *queue.Task
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the notifier built from config.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithMetrics records pipeline metrics on c.
func WithMetrics(c *metrics.Collectors) ManagerOption {
	return func(m *Manager) {
		m.metrics = c
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, deps Collaborators, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		notifier: notifications.NewService(cfg),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		taskLogs: NewTaskLogs(cfg),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dispatcher = NewDispatcher(cfg.Workflow.MaxConcurrentTasks, m.runJob, logger)
	return m
}

// Dispatcher exposes the task pool.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Store returns the task store.
func (m *Manager) Store() *queue.Store {
	return m.store
}
