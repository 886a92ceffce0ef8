package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"podcastforge/internal/audioclip"
	"podcastforge/internal/highlight"
	"podcastforge/internal/logging"
	"podcastforge/internal/notifications"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/synth"
)

// GenerateHighlights extracts, clips and stores one highlight per requested
// duration. Durations run sequentially; a failed duration is logged and
// skipped. The persisted highlights are returned.
func (m *Manager) GenerateHighlights(ctx context.Context, req HighlightRequest) ([]*queue.Highlight, error) {
	durations := req.Durations
	if len(durations) == 0 {
		durations = m.cfg.Highlights.DefaultDurations
	}
	if len(durations) == 0 {
		return nil, services.Wrap(services.ErrInvalidInput, "highlights", "validate", "no durations requested", nil)
	}
	for _, d := range durations {
		if d <= 0 {
			return nil, services.Wrap(services.ErrInvalidInput, "highlights", "validate", fmt.Sprintf("duration %d must be positive", d), nil)
		}
	}

	task, err := m.Task(ctx, req.OwnerID, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status != queue.StatusCompleted || !task.HasEpisode() {
		return nil, services.Wrap(services.ErrInvalidInput, "highlights", "validate", "task has no completed episode", nil)
	}

	ctx = withTaskContext(ctx, task)
	ctx = services.WithStage(ctx, "highlights")
	logger := logging.WithContext(ctx, m.logger)

	turns := highlightTurns(task)
	if len(turns) == 0 {
		return nil, services.Wrap(services.ErrInvalidInput, "highlights", "validate", "task has no script to highlight", nil)
	}

	var (
		created []*queue.Highlight
		failed  int
	)
	for _, target := range durations {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		h, err := m.highlightFor(ctx, task, turns, target)
		if err != nil {
			failed++
			m.metrics.Highlight(target, "skipped")
			logging.WarnWithContext(logger, "highlight skipped", "highlight_skipped",
				logging.Int("target_seconds", target),
				logging.String(logging.FieldErrorKind, string(services.Normalize(err))),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining durations continue"),
			)
			continue
		}
		m.metrics.Highlight(target, "created")
		logger.Info("highlight created",
			logging.String("highlight_id", h.ID),
			logging.Int("target_seconds", target),
			logging.Float64("start", h.StartTime),
			logging.Float64("duration", h.Duration),
			logging.String(logging.FieldEventType, "highlight_created"),
		)
		created = append(created, h)
	}

	if len(created) > 0 {
		m.notify(ctx, logger, notifications.EventHighlightsReady, notifications.Payload{
			"title":  firstNonEmpty(task.EpisodeTitle, task.Title),
			"taskId": task.ID,
			"owner":  task.OwnerID,
			"count":  len(created),
			"failed": failed,
		})
	}
	return created, nil
}

func (m *Manager) highlightFor(ctx context.Context, task *queue.Task, turns []highlight.Turn, target int) (*queue.Highlight, error) {
	segment, err := m.deps.Highlights.Extract(ctx, turns, target)
	if err != nil {
		return nil, err
	}
	clip, err := m.deps.Clips.Clip(ctx, audioclip.ClipRequest{
		SourceURL: task.EpisodeAudioURL,
		SourceKey: task.EpisodeAudioKey,
		Start:     segment.StartTime,
		Duration:  segment.Duration,
		OwnerID:   task.OwnerID,
		TaskID:    task.ID,
	})
	if err != nil {
		return nil, err
	}
	h, err := m.store.InsertHighlight(ctx, &queue.Highlight{
		TaskID:            task.ID,
		OwnerID:           task.OwnerID,
		Title:             segment.Title,
		Description:       segment.Description,
		StartTime:         segment.StartTime,
		EndTime:           segment.EndTime,
		Duration:          segment.Duration,
		TargetDuration:    target,
		TranscriptExcerpt: segment.TranscriptExcerpt,
		ClipAudioURL:      clip.URL,
		ClipAssetKey:      clip.Key,
	})
	if err != nil {
		m.removeObject(ctx, clip.Key)
		return nil, services.Wrap(services.ErrInternal, "highlights", "save highlight", "", err)
	}
	return h, nil
}

// highlightTurns picks the richest script available: episode turns, then
// transcript paragraphs, then the summary as one turn.
func highlightTurns(task *queue.Task) []highlight.Turn {
	if raw := strings.TrimSpace(task.EpisodeScriptJSON); raw != "" {
		var turns []synth.Turn
		if err := json.Unmarshal([]byte(raw), &turns); err == nil {
			if out := highlight.FromEpisode(turns); len(out) > 0 {
				return out
			}
		}
	}
	if out := highlight.FromParagraphs(task.Transcript); len(out) > 0 {
		return out
	}
	if summary := strings.TrimSpace(task.Summary); summary != "" {
		return []highlight.Turn{{Content: summary}}
	}
	return nil
}
