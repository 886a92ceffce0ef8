package workflow

import (
	"context"
	"strings"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/services/tts"
)

// Task returns ownerID's task. Tasks of other owners read as missing.
func (m *Manager) Task(ctx context.Context, ownerID, taskID string) (*queue.Task, error) {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "", "load task", "", err)
	}
	if task == nil || task.OwnerID != ownerID {
		return nil, services.Wrap(services.ErrNotFound, "", "load task", taskID, nil)
	}
	return task, nil
}

// Tasks lists ownerID's tasks, newest first.
func (m *Manager) Tasks(ctx context.Context, ownerID string, limit int) ([]*queue.Task, error) {
	tasks, err := m.store.ListTasks(ctx, ownerID, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "", "list tasks", "", err)
	}
	return tasks, nil
}

// Highlights lists the highlights of ownerID's task.
func (m *Manager) Highlights(ctx context.Context, ownerID, taskID string) ([]*queue.Highlight, error) {
	if _, err := m.Task(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	list, err := m.store.ListHighlights(ctx, taskID)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "highlights", "list highlights", "", err)
	}
	return list, nil
}

// Delete removes ownerID's task with its highlights, then removes the stored
// audio objects best-effort.
func (m *Manager) Delete(ctx context.Context, ownerID, taskID string) error {
	task, err := m.Task(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	highlights, err := m.store.ListHighlights(ctx, taskID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "", "list highlights", "", err)
	}
	removed, err := m.store.DeleteTask(ctx, ownerID, taskID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "", "delete task", "", err)
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "", "delete task", taskID, nil)
	}

	keys := []string{task.SourceAudioKey, task.EpisodeAudioKey}
	for _, h := range highlights {
		keys = append(keys, h.ClipAssetKey)
	}
	for _, key := range keys {
		m.removeObject(ctx, key)
	}
	if err := m.taskLogs.Remove(taskID); err != nil {
		m.logger.Debug("task log not removed", logging.String(logging.FieldTaskID, taskID), logging.Error(err))
	}
	m.logger.Info("task deleted",
		logging.String(logging.FieldTaskID, taskID),
		logging.String(logging.FieldOwnerID, ownerID),
		logging.Int("highlights", len(highlights)),
		logging.String(logging.FieldEventType, "task_deleted"),
	)
	return nil
}

// DeleteHighlight removes one of ownerID's highlights and its clip.
func (m *Manager) DeleteHighlight(ctx context.Context, ownerID, highlightID string) error {
	h, err := m.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "highlights", "load highlight", "", err)
	}
	if h == nil || h.OwnerID != ownerID {
		return services.Wrap(services.ErrNotFound, "highlights", "delete highlight", highlightID, nil)
	}
	removed, err := m.store.DeleteHighlight(ctx, ownerID, highlightID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "highlights", "delete highlight", "", err)
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "highlights", "delete highlight", highlightID, nil)
	}
	m.removeObject(ctx, h.ClipAssetKey)
	return nil
}

// Voices lists the TTS voice catalog.
func (m *Manager) Voices(ctx context.Context) ([]tts.Voice, error) {
	if m.deps.Voices == nil {
		return nil, services.Wrap(services.ErrConfigurationMissing, "", "list voices", "tts not configured", nil)
	}
	return m.deps.Voices.Voices(ctx)
}

// VoicePreference returns ownerID's saved voices, or nil.
func (m *Manager) VoicePreference(ctx context.Context, ownerID string) (*queue.VoicePreference, error) {
	pref, err := m.store.GetVoicePreference(ctx, ownerID)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "", "load voice preference", "", err)
	}
	return pref, nil
}

// SaveVoicePreference stores ownerID's default voices after checking them
// against the catalog when it is reachable.
func (m *Manager) SaveVoicePreference(ctx context.Context, pref queue.VoicePreference) error {
	pref.OwnerID = strings.TrimSpace(pref.OwnerID)
	pref.Host1VoiceID = strings.TrimSpace(pref.Host1VoiceID)
	pref.Host2VoiceID = strings.TrimSpace(pref.Host2VoiceID)
	if pref.OwnerID == "" || pref.Host1VoiceID == "" || pref.Host2VoiceID == "" {
		return services.Wrap(services.ErrInvalidInput, "", "save voice preference", "owner and both voices are required", nil)
	}
	if m.deps.Voices != nil {
		if catalog, err := m.deps.Voices.Voices(ctx); err == nil {
			for _, id := range []string{pref.Host1VoiceID, pref.Host2VoiceID} {
				if _, ok := tts.FindVoice(catalog, id); !ok {
					return services.Wrap(services.ErrInvalidInput, "", "save voice preference", "unknown voice "+id, nil)
				}
			}
		}
	}
	if err := m.store.SaveVoicePreference(ctx, pref); err != nil {
		return services.Wrap(services.ErrInternal, "", "save voice preference", "", err)
	}
	return nil
}

func (m *Manager) removeObject(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	if key == "" || m.deps.Storage == nil {
		return
	}
	if err := m.deps.Storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		logging.WarnWithContext(m.logger, "stored object not removed", "storage_cleanup_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the object manually"),
			logging.String(logging.FieldImpact, "orphaned object remains in storage"),
		)
	}
}
