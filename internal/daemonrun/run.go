package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"podcastforge/internal/config"
	"podcastforge/internal/daemon"
	"podcastforge/internal/deps"
	"podcastforge/internal/logging"
	"podcastforge/internal/metrics"
	"podcastforge/internal/preflight"
	"podcastforge/internal/queue"
	"podcastforge/internal/workflow"
)

// PIDFileName is written under paths.data_dir while the daemon runs.
const PIDFileName = "podcastforge.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel    string
	Development bool
}

// PIDPath returns the pid file location for cfg.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, PIDFileName)
}

// Run starts the podcastforge daemon and blocks until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open task store", "store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database.driver and database.dsn"),
		)
		return err
	}

	var collectors *metrics.Collectors
	if cfg.Metrics.Enabled {
		collectors = metrics.New(cfg.Metrics.Namespace)
	}
	collaborators, clients, err := workflow.BuildCollaborators(signalCtx, cfg, logger, collectors)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build pipeline: %w", err)
	}

	manager := workflow.NewManager(cfg, store, collaborators, logger, workflow.WithMetrics(collectors))
	d, err := daemon.New(cfg, store, manager, logger,
		daemon.WithMetrics(collectors),
		daemon.WithPreflightTargets(preflight.Targets{
			LLM:     clients.LLM,
			Voices:  clients.TTS,
			Storage: clients.Storage,
		}),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and the api_bind address"),
			logging.String(logging.FieldImpact, "no tasks will be processed"),
		)
		return err
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		logging.WarnWithContext(logger, "pid file not written", "pid_file_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "podcastforge stop falls back to the api status pid"),
		)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("podcastforge daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("transcription_key_present", strings.TrimSpace(cfg.Transcription.APIKey) != ""),
		logging.Bool("tts_key_present", strings.TrimSpace(cfg.TTS.APIKey) != ""),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("database_driver", cfg.Database.Driver),
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", ""))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required binaries missing", "dependency_missing",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String(logging.FieldErrorHint, "install them or set the workflow.*_binary paths"),
			logging.String(logging.FieldImpact, "episodes and highlights fail until they are available"),
		)
	}
}
