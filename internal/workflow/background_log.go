package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podcastforge/internal/config"
	"podcastforge/internal/logging"
)

// TaskLogs manages one log file per task under paths.log_dir/tasks.
type TaskLogs struct {
	baseDir string
	level   string
}

// NewTaskLogs returns a TaskLogs rooted in cfg's log directory. Without a log
// directory per-task logs are disabled.
func NewTaskLogs(cfg *config.Config) *TaskLogs {
	t := &TaskLogs{level: "info"}
	if cfg == nil {
		return t
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		t.baseDir = filepath.Join(dir, "tasks")
	}
	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		t.level = lvl
	}
	return t
}

// Path returns the log file of taskID, or "" when disabled.
func (t *TaskLogs) Path(taskID string) string {
	if t == nil || t.baseDir == "" || strings.TrimSpace(taskID) == "" {
		return ""
	}
	return filepath.Join(t.baseDir, sanitizeSlug(taskID)+".log")
}

// Open returns a logger that writes to base and to the task's log file. The
// returned close function releases the file.
func (t *TaskLogs) Open(base *slog.Logger, taskID string) (*slog.Logger, func(), error) {
	if base == nil {
		base = logging.NewNop()
	}
	path := t.Path(taskID)
	if path == "" {
		return base, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return base, func() {}, fmt.Errorf("ensure task log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return base, func() {}, fmt.Errorf("open task log: %w", err)
	}
	handler := logging.Tee(base.Handler(), logging.NewJSONHandler(file, t.level))
	return slog.New(handler), func() { _ = file.Close() }, nil
}

// Remove deletes the task's log file if present.
func (t *TaskLogs) Remove(taskID string) error {
	path := t.Path(taskID)
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitizeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
