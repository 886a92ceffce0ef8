package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services"
)

// Submit validates req, persists a pending task and dispatches it. An active
// task for the same owner, input type and source is returned together with
// an error wrapping ErrDuplicateTask.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*queue.Task, error) {
	task, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	created, existing, err := m.createUnlessActive(ctx, task)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, services.Wrap(services.ErrInvalidInput, "queued", "submit",
			fmt.Sprintf("task %s is already %s for this source", existing.ID, existing.Status), ErrDuplicateTask)
	}
	ctx = withTaskContext(ctx, created)
	logger := logging.WithContext(ctx, m.logger)

	if created.Host1VoiceID != "" && created.Host2VoiceID != "" {
		if err := m.store.SaveVoicePreference(ctx, queue.VoicePreference{
			OwnerID:      created.OwnerID,
			Host1VoiceID: created.Host1VoiceID,
			Host2VoiceID: created.Host2VoiceID,
		}); err != nil {
			logging.WarnWithContext(logger, "voice preference not saved", "voice_preference_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "future tasks fall back to default voices"),
			)
		}
	}

	m.metrics.TaskSubmitted(string(created.InputType))
	logger.Info("task submitted",
		logging.String(logging.FieldInputType, string(created.InputType)),
		logging.String("mode", string(created.Mode)),
		logging.String("style", string(created.Style)),
		logging.String(logging.FieldEventType, "task_submitted"),
	)

	if err := m.dispatcher.Enqueue(Job{TaskID: created.ID, SourceReference: created.SourceReference}); err != nil {
		if errors.Is(err, ErrDispatcherStopped) {
			logger.Info("task left pending until the workflow starts",
				logging.String(logging.FieldEventType, "task_deferred"),
			)
		} else if !errors.Is(err, ErrAlreadyQueued) {
			return created, services.Wrap(services.ErrInternal, "queued", "dispatch", "", err)
		}
	}
	return created, nil
}

func (m *Manager) validate(req SubmitRequest) (*queue.Task, error) {
	invalid := func(msg string) error {
		return services.Wrap(services.ErrInvalidInput, "queued", "validate", msg, nil)
	}

	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, invalid("owner id is required")
	}
	inputType, ok := queue.ParseInputType(req.InputType)
	if !ok {
		return nil, invalid(fmt.Sprintf("unsupported input type %q", req.InputType))
	}
	mode, ok := queue.ParseMode(req.Mode)
	if !ok {
		return nil, invalid(fmt.Sprintf("unsupported mode %q", req.Mode))
	}
	style, ok := queue.ParseStyle(req.Style)
	if !ok {
		return nil, invalid(fmt.Sprintf("unsupported style %q", req.Style))
	}

	source := strings.TrimSpace(req.SourceReference)
	if source == "" {
		return nil, invalid("source reference is empty")
	}
	switch inputType {
	case queue.InputText:
		if utf8.RuneCountInString(source) > MaxSourceReferenceChars {
			return nil, invalid(fmt.Sprintf("text exceeds %d characters", MaxSourceReferenceChars))
		}
	case queue.InputVideo, queue.InputArticle:
		if err := validateURL(source); err != nil {
			return nil, invalid(err.Error())
		}
		if inputType == queue.InputVideo && resolve.VideoID(source) == "" {
			return nil, invalid("unrecognized video link")
		}
	}

	return &queue.Task{
		OwnerID:         owner,
		InputType:       inputType,
		SourceReference: source,
		Mode:            mode,
		Style:           style,
		Host1VoiceID:    strings.TrimSpace(req.Host1VoiceID),
		Host2VoiceID:    strings.TrimSpace(req.Host2VoiceID),
	}, nil
}

func validateURL(raw string) error {
	if len(raw) > MaxURLLength {
		return fmt.Errorf("url exceeds %d characters", MaxURLLength)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}

func (m *Manager) createUnlessActive(ctx context.Context, task *queue.Task) (created, existing *queue.Task, err error) {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()

	existing, err = m.store.FindActive(ctx, task.OwnerID, task.InputType, task.SourceReference)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrInternal, "queued", "duplicate check", "", err)
	}
	if existing != nil {
		return nil, existing, nil
	}
	created, err = m.store.CreateTask(ctx, task)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrInternal, "queued", "create task", "", err)
	}
	return created, nil, nil
}
