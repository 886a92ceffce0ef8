package progress

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
)

// Update is one progress observation.
type Update struct {
	Stage   queue.Stage
	Percent float64
	Message string
}

// Reporter receives progress updates from long-running collaborators.
type Reporter interface {
	Report(ctx context.Context, update Update) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, update Update) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, update Update) error {
	return f(ctx, update)
}

// Nop discards updates.
var Nop Reporter = ReporterFunc(func(context.Context, Update) error { return nil })

// Writer persists progress. queue.Store satisfies it.
type Writer interface {
	UpdateProgress(ctx context.Context, id string, stage queue.Stage, percent float64, message string, eta *int) error
}

// Tracker persists monotonic progress for a single task.
type Tracker struct {
	writer Writer
	taskID string
	input  queue.InputType
	logger *slog.Logger

	mu      sync.Mutex
	stage   queue.Stage
	percent float64
}

// NewTracker builds a tracker for task.
func NewTracker(writer Writer, task *queue.Task, logger *slog.Logger) *Tracker {
	t := &Tracker{
		writer: writer,
		logger: logging.NewComponentLogger(logger, "progress"),
		stage:  queue.StageQueued,
	}
	if task != nil {
		t.taskID = task.ID
		t.input = task.InputType
		t.percent = task.ProgressPercent
		if task.Stage != "" {
			t.stage = task.Stage
		}
	}
	return t
}

// Report persists update. Percent values below the last reported value are
// raised to it so pollers never observe progress moving backwards.
func (t *Tracker) Report(ctx context.Context, update Update) error {
	if update.Stage == queue.StageCompleted || update.Stage == queue.StageFailed {
		return queue.ErrTerminal
	}
	t.mu.Lock()
	if update.Stage == "" {
		update.Stage = t.stage
	}
	if update.Percent < t.percent {
		update.Percent = t.percent
	}
	if update.Percent > PercentCompleted {
		update.Percent = PercentCompleted
	}
	t.stage = update.Stage
	t.percent = update.Percent
	t.mu.Unlock()

	eta := EstimateRemaining(t.input, update.Stage, update.Percent)
	message := strings.TrimSpace(update.Message)
	if err := t.writer.UpdateProgress(ctx, t.taskID, update.Stage, update.Percent, message, eta); err != nil {
		return err
	}
	t.logger.Debug("progress updated",
		logging.String(logging.FieldTaskID, t.taskID),
		logging.String(logging.FieldStage, string(update.Stage)),
		logging.Float64("percent", update.Percent),
		logging.String(logging.FieldEventType, "progress_update"),
	)
	return nil
}

// Stage enters stage at its checkpoint percent.
func (t *Tracker) Stage(ctx context.Context, stage queue.Stage, percent float64, message string) error {
	return t.Report(ctx, Update{Stage: stage, Percent: percent, Message: message})
}

// Percent returns the last reported percent.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Current returns the last reported stage.
func (t *Tracker) Current() queue.Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}
