package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"podcastforge/internal/api"
	"podcastforge/internal/config"
	"podcastforge/internal/logging"
	"podcastforge/internal/metrics"
	"podcastforge/internal/preflight"
	"podcastforge/internal/queue"
	"podcastforge/internal/staging"
	"podcastforge/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	metrics  *metrics.Collectors
	targets  preflight.Targets
	logPath  string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithMetrics exposes collectors on /metrics.
func WithMetrics(c *metrics.Collectors) Option {
	return func(d *Daemon) { d.metrics = c }
}

// WithPreflightTargets sets the live collaborators probed by the health checks.
func WithPreflightTargets(targets preflight.Targets) Option {
	return func(d *Daemon) { d.targets = targets }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, prunes stale scratch space, logs preflight
// failures, then starts the workflow manager and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podcastforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.housekeeping(runCtx)
	d.logPreflight(runCtx)

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("podcastforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldImpact, "next start may need the stale lock file removed"),
		)
	}
	d.running.Store(false)
	d.logger.Info("podcastforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the address the API listens on, or "" when it is not serving.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Handler returns the API handler without a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Workflow:     api.FromStatusSummary(d.workflow.Status(ctx)),
	}
	if d.cfg.Database.Driver == config.DatabaseDriverSQLite {
		status.DatabasePath = strings.TrimSpace(d.cfg.Database.DSN)
		if status.DatabasePath == "" {
			status.DatabasePath = d.cfg.SQLitePath()
		}
	}
	return status
}

// Health runs the preflight checks and summarizes scratch usage.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	results := preflight.RunAll(ctx, d.cfg, d.targets)
	usage, err := staging.Summarize(d.cfg.Paths.TempDir)
	if err != nil {
		d.logger.Debug("temp usage unavailable", logging.Error(err))
	}
	return api.FromPreflight(results, usage)
}

func (d *Daemon) housekeeping(ctx context.Context) {
	if hours := d.cfg.Workflow.TempRetentionHours; hours > 0 {
		result := staging.CleanStale(ctx, d.cfg.Paths.TempDir, time.Duration(hours)*time.Hour, d.logger)
		if len(result.Removed) > 0 {
			d.logger.Info("stale work directories removed",
				logging.Int("count", len(result.Removed)),
				logging.String(logging.FieldEventType, "temp_cleanup"),
			)
		}
	}
	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, d.cfg.Paths.LogDir, "*.log")
	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, filepath.Join(d.cfg.Paths.LogDir, "tasks"), "*.log")
}

func (d *Daemon) logPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg, d.targets)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run podcastforge health for details"),
			logging.String(logging.FieldImpact, "tasks depending on this check will fail"),
		)
	}
	for _, r := range results {
		if !r.Passed && r.Optional {
			d.logger.Info("optional check unavailable",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		}
	}
}
