package queue

import (
	"context"
	"fmt"
	"time"
)

// MarkProcessing moves a pending task into processing at stage queued.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, stage = ?, heartbeat_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusProcessing), string(StageQueued), now, now,
		id, string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

// UpdateProgress records a non-terminal stage transition. The stored percent
// never decreases: max(old, new) is persisted.
func (s *Store) UpdateProgress(ctx context.Context, id string, stage Stage, percent float64, message string, eta *int) error {
	if stage == StageCompleted || stage == StageFailed {
		return fmt.Errorf("update progress: stage %q is terminal", stage)
	}
	percent = clampPercent(percent)
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET stage = ?,
             progress_percent = CASE WHEN progress_percent > ? THEN progress_percent ELSE ? END,
             progress_message = ?, eta_seconds = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		string(stage), percent, percent, nullableString(message), nullableInt(eta), formatTime(time.Now()),
		id, string(StatusCompleted), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

// SaveSource persists resolution and analysis output.
func (s *Store) SaveSource(ctx context.Context, id string, result SourceResult) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET title = ?, transcript = ?, summary = ?, script = ?,
             source_audio_url = ?, source_audio_key = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		nullableString(result.Title), nullableString(result.Transcript), nullableString(result.Summary),
		nullableString(result.Script), nullableString(result.SourceAudioURL), nullableString(result.SourceAudioKey),
		formatTime(time.Now()), id, string(StatusCompleted), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("save source: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

// SaveEpisode persists the synthesized episode.
func (s *Store) SaveEpisode(ctx context.Context, id string, episode EpisodeResult) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET episode_id = ?, episode_title = ?, episode_audio_url = ?, episode_audio_key = ?,
             episode_script_json = ?, episode_duration = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		nullableString(episode.ID), nullableString(episode.Title), nullableString(episode.AudioURL),
		nullableString(episode.AudioKey), nullableString(episode.ScriptJSON), episode.DurationSeconds,
		formatTime(time.Now()), id, string(StatusCompleted), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

// Complete writes the terminal completed state with percent 100.
func (s *Store) Complete(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET status = ?, stage = ?, progress_percent = 100, progress_message = ?,
             eta_seconds = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		string(StatusCompleted), string(StageCompleted), nullableString(message), formatTime(time.Now()),
		id, string(StatusCompleted), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

// MarkFailed writes the terminal failed state. Percent is left unchanged so
// the UI shows how far the run got.
func (s *Store) MarkFailed(ctx context.Context, id, kind, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET status = ?, stage = ?, error_kind = ?, error_message = ?, progress_message = ?,
             eta_seconds = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		string(StatusFailed), string(StageFailed), nullableString(kind), nullableString(message),
		nullableString(message), formatTime(time.Now()),
		id, string(StatusCompleted), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return s.checkAffected(ctx, id, res)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// checkAffected distinguishes a missing task from a terminal one when an
// update touched no rows.
func (s *Store) checkAffected(ctx context.Context, id string, res rowsAffecter) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return fmt.Errorf("%w: %s is %s", ErrTerminal, id, task.Status)
}

func clampPercent(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}
