package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"podcastforge/internal/analyzer"
	"podcastforge/internal/logging"
	"podcastforge/internal/metrics"
	"podcastforge/internal/notifications"
	"podcastforge/internal/progress"
	"podcastforge/internal/queue"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/synth"
)

// CompletionMessage is the progress message of a completed task.
const CompletionMessage = "Podcast generation complete"

// pipelineResult is what a successful pass produced before persistence.
type pipelineResult struct {
	content  resolve.Content
	analysis analyzer.Analysis
	fastPath bool
}

// Run executes one task in a single pass. Failures are persisted on the task
// and also returned; no stage is retried.
func (m *Manager) Run(ctx context.Context, job Job) error {
	task, err := m.store.GetTask(ctx, job.TaskID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "queued", "load task", "", err)
	}
	if task == nil {
		return services.Wrap(services.ErrNotFound, "queued", "load task", job.TaskID, nil)
	}
	if task.IsTerminal() {
		m.logger.Debug("skipping terminal task",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String("status", string(task.Status)),
		)
		return nil
	}

	ctx = withTaskContext(ctx, task)
	logger, closeLog := m.taskLogger(ctx, task)
	defer closeLog()

	m.guardStaleReference(logger, task, job.SourceReference)

	m.metrics.TaskStarted()
	if err := m.store.MarkProcessing(ctx, task.ID); err != nil {
		wrapped := services.Wrap(services.ErrInternal, "queued", "mark processing", "", err)
		m.handleFailure(ctx, task, wrapped, logger)
		return wrapped
	}
	task.Status = queue.StatusProcessing
	m.setLastTask(task)

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, task.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	started := time.Now()
	logger.Info("task started",
		logging.String("source", sourceLabel(task)),
		logging.String(logging.FieldEventType, "task_started"),
	)

	run := &taskRun{
		m:       m,
		task:    task,
		logger:  logger,
		tracker: progress.NewTracker(m.store, task, logger),
		clock:   newStageClock(m.metrics),
	}
	if err := run.execute(ctx); err != nil {
		run.clock.stop()
		m.handleFailure(ctx, task, err, logger)
		return err
	}
	run.clock.stop()

	if err := m.store.Complete(ctx, task.ID, CompletionMessage); err != nil {
		m.handleFailure(ctx, task, services.Wrap(services.ErrInternal, "completed", "complete task", "", err), logger)
		return err
	}
	task.Status = queue.StatusCompleted
	task.Stage = queue.StageCompleted
	m.setLastTask(task)
	m.metrics.TaskFinished(string(task.InputType), string(queue.StatusCompleted), "")
	logger.Info("task completed",
		logging.String("title", task.EpisodeTitle),
		logging.Bool("fast_path", run.result.fastPath),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "task_completed"),
	)
	m.notify(ctx, logger, notifications.EventTaskCompleted, notifications.Payload{
		"title":  task.EpisodeTitle,
		"taskId": task.ID,
		"owner":  task.OwnerID,
	})
	return nil
}

// guardStaleReference keeps the stored reference authoritative when the
// dispatched job carries a different video.
func (m *Manager) guardStaleReference(logger *slog.Logger, task *queue.Task, dispatched string) {
	dispatched = strings.TrimSpace(dispatched)
	if task.InputType != queue.InputVideo || dispatched == "" || dispatched == task.SourceReference {
		return
	}
	if resolve.SameVideo(dispatched, task.SourceReference) {
		return
	}
	logging.WarnWithContext(logger, "dispatched video differs from stored task; using stored reference", "stale_reference",
		logging.String("dispatched", dispatched),
		logging.String("stored", task.SourceReference),
		logging.String(logging.FieldImpact, "the stored source is processed"),
	)
}

type taskRun struct {
	m       *Manager
	task    *queue.Task
	logger  *slog.Logger
	tracker *progress.Tracker
	clock   *stageClock
	result  pipelineResult
}

func (r *taskRun) execute(ctx context.Context) error {
	if err := r.enter(ctx, queue.StageQueued, progress.PercentQueued, "Task started"); err != nil {
		return err
	}

	var err error
	switch r.task.InputType {
	case queue.InputVideo:
		r.result, err = r.video(ctx)
	case queue.InputText:
		r.result, err = r.text(ctx)
	case queue.InputArticle:
		r.result, err = r.article(ctx)
	default:
		err = services.Wrap(services.ErrInvalidInput, "queued", "dispatch", fmt.Sprintf("unsupported input type %q", r.task.InputType), nil)
	}
	if err != nil {
		return err
	}

	source := queue.SourceResult{
		Title:          r.result.analysis.Title,
		Transcript:     r.result.content.Text,
		Summary:        r.result.analysis.Summary,
		Script:         r.result.analysis.Script,
		SourceAudioURL: r.result.content.RawAudioURL,
		SourceAudioKey: r.result.content.RawAudioKey,
	}
	if err := r.m.store.SaveSource(ctx, r.task.ID, source); err != nil {
		return services.Wrap(services.ErrInternal, string(queue.StageAnalyzing), "save analysis", "", err)
	}
	r.task.Title = source.Title
	r.task.Transcript = source.Transcript
	r.task.Summary = source.Summary
	r.task.Script = source.Script

	return r.generate(ctx)
}

func (r *taskRun) text(ctx context.Context) (pipelineResult, error) {
	if err := r.enter(ctx, queue.StageAnalyzing, progress.PercentAnalyzing, "Analyzing text"); err != nil {
		return pipelineResult{}, err
	}
	content, err := r.m.deps.Text.Resolve(ctx, r.task.SourceReference, stageReporter{r})
	if err != nil {
		return pipelineResult{}, err
	}
	return r.analyze(ctx, content)
}

func (r *taskRun) article(ctx context.Context) (pipelineResult, error) {
	if err := r.enter(ctx, queue.StageDownloading, progress.PercentArticleDownloading, "Fetching article"); err != nil {
		return pipelineResult{}, err
	}
	content, err := r.m.deps.Article.Resolve(ctx, r.task.SourceReference, stageReporter{r})
	if err != nil {
		return pipelineResult{}, err
	}
	if err := r.enter(ctx, queue.StageAnalyzing, progress.PercentAnalyzing, "Analyzing article"); err != nil {
		return pipelineResult{}, err
	}
	return r.analyze(ctx, content)
}

func (r *taskRun) video(ctx context.Context) (pipelineResult, error) {
	if res, ok, err := r.fastPath(ctx); err != nil || ok {
		return res, err
	}
	content, err := r.m.deps.Video.Resolve(ctx, r.task.SourceReference, stageReporter{r})
	if err != nil {
		return pipelineResult{}, err
	}
	if err := r.enter(ctx, queue.StageAnalyzing, progress.PercentVideoAnalyzing, "Analyzing transcript"); err != nil {
		return pipelineResult{}, err
	}
	return r.analyze(ctx, content)
}

// fastPath tries the combined video analysis. ok is false when the caller
// must fall back to download and transcription.
func (r *taskRun) fastPath(ctx context.Context) (pipelineResult, bool, error) {
	if !r.m.deps.Analyzer.FastPathEnabled() {
		r.m.metrics.FastPath("disabled")
		return pipelineResult{}, false, nil
	}
	if err := r.enter(ctx, queue.StageAnalyzing, progress.PercentVideoFastPath, "Checking video"); err != nil {
		return pipelineResult{}, false, err
	}
	meta, err := r.m.deps.Video.Metadata(ctx, r.task.SourceReference)
	if err != nil {
		r.m.metrics.FastPath("error")
		logging.WarnWithContext(r.logger, "video metadata unavailable; skipping fast path", "fast_path_skipped",
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to download and transcription"),
		)
		return pipelineResult{}, false, ctx.Err()
	}
	videoID := meta.ID
	if videoID == "" {
		videoID = resolve.VideoID(r.task.SourceReference)
	}
	analysis, err := r.m.deps.Analyzer.FastPath(ctx, analyzer.FastPathRequest{
		SourceReference:  r.task.SourceReference,
		VideoID:          videoID,
		GroundTruthTitle: meta.Title,
		Style:            r.task.Style,
		Mode:             r.task.Mode,
		Language:         meta.Language,
	})
	if err != nil {
		if !errors.Is(err, analyzer.ErrFastPathRejected) {
			return pipelineResult{}, false, err
		}
		r.m.metrics.FastPath("rejected")
		r.logger.Info("fast path rejected",
			logging.String("video_id", videoID),
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "fast_path_fallback"),
		)
		return pipelineResult{}, false, ctx.Err()
	}
	r.m.metrics.FastPath("accepted")
	return pipelineResult{
		content: resolve.Content{
			Title:           meta.Title,
			DurationSeconds: meta.DurationSeconds,
			Language:        meta.Language,
		},
		analysis: analysis,
		fastPath: true,
	}, true, nil
}

func (r *taskRun) analyze(ctx context.Context, content resolve.Content) (pipelineResult, error) {
	analysis, err := r.m.deps.Analyzer.Analyze(ctx, content.Text, analyzer.Options{
		Style:      r.task.Style,
		Mode:       r.task.Mode,
		Language:   content.Language,
		KnownTitle: content.Title,
	})
	if err != nil {
		return pipelineResult{}, err
	}
	return pipelineResult{content: content, analysis: analysis}, nil
}

func (r *taskRun) generate(ctx context.Context) error {
	if err := r.enter(ctx, queue.StageGenerating, progress.PercentGenerating, "Generating podcast audio"); err != nil {
		return err
	}
	text := r.result.analysis.Script
	if strings.TrimSpace(text) == "" {
		text = r.result.analysis.Summary
	}
	host1, host2 := r.m.hostVoices(ctx, r.logger, r.task)
	episode, err := r.m.deps.Synth.Synthesize(ctx, synth.Request{
		Summary: text,
		Title:   r.result.analysis.Title,
		Mode:    r.task.Mode,
		Host1:   host1,
		Host2:   host2,
		OwnerID: r.task.OwnerID,
		TaskID:  r.task.ID,
	})
	if err != nil {
		return err
	}
	saved := queue.EpisodeResult{
		ID:              episode.ID,
		Title:           episode.Title,
		AudioURL:        episode.AudioURL,
		AudioKey:        episode.AudioKey,
		ScriptJSON:      episode.ScriptJSON(),
		DurationSeconds: episode.DurationSeconds,
	}
	if err := r.m.store.SaveEpisode(ctx, r.task.ID, saved); err != nil {
		return services.Wrap(services.ErrInternal, string(queue.StageGenerating), "save episode", "", err)
	}
	r.task.EpisodeID = saved.ID
	r.task.EpisodeTitle = saved.Title
	r.task.EpisodeAudioURL = saved.AudioURL
	r.task.EpisodeAudioKey = saved.AudioKey
	return nil
}

// enter persists a stage checkpoint and starts its timer.
func (r *taskRun) enter(ctx context.Context, stage queue.Stage, percent float64, message string) error {
	r.clock.enter(stage)
	if err := r.tracker.Stage(ctx, stage, percent, message); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrInternal, string(stage), "update progress", "", err)
	}
	return nil
}

// stageReporter forwards resolver sub-progress and times stage changes.
type stageReporter struct{ r *taskRun }

func (s stageReporter) Report(ctx context.Context, update progress.Update) error {
	if update.Stage != "" {
		s.r.clock.enter(update.Stage)
	}
	return s.r.tracker.Report(ctx, update)
}

// hostVoices resolves voices from the task, then the owner's preference,
// then the configured defaults. Missing voices are left nil so the
// synthesizer picks catalog defaults.
func (m *Manager) hostVoices(ctx context.Context, logger *slog.Logger, task *queue.Task) (*tts.Voice, *tts.Voice) {
	host1, host2 := task.Host1VoiceID, task.Host2VoiceID
	if host1 == "" || host2 == "" {
		pref, err := m.store.GetVoicePreference(ctx, task.OwnerID)
		if err != nil {
			logging.WarnWithContext(logger, "voice preference lookup failed", "voice_preference_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "default voices are used"),
			)
		} else if pref != nil {
			host1 = firstNonEmpty(host1, pref.Host1VoiceID)
			host2 = firstNonEmpty(host2, pref.Host2VoiceID)
		}
	}
	host1 = firstNonEmpty(host1, m.cfg.TTS.Host1Voice)
	host2 = firstNonEmpty(host2, m.cfg.TTS.Host2Voice)
	if host1 == "" && host2 == "" {
		return nil, nil
	}
	if m.deps.Voices == nil {
		return nil, nil
	}
	catalog, err := m.deps.Voices.Voices(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "voice catalog unavailable", "voice_catalog_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "default voices are used"),
		)
		return nil, nil
	}
	lookup := func(id string) *tts.Voice {
		if id == "" {
			return nil
		}
		voice, ok := tts.FindVoice(catalog, id)
		if !ok {
			logging.WarnWithContext(logger, "unknown voice requested", "voice_unknown",
				logging.String("voice_id", id),
				logging.String(logging.FieldImpact, "default voice is used"),
			)
			return nil
		}
		return &voice
	}
	return lookup(host1), lookup(host2)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func sourceLabel(task *queue.Task) string {
	if task.InputType == queue.InputText {
		return fmt.Sprintf("%d characters of text", len([]rune(task.SourceReference)))
	}
	return task.SourceReference
}

// stageClock observes wall time per stage.
type stageClock struct {
	metrics *metrics.Collectors
	mu      sync.Mutex
	stage   queue.Stage
	since   time.Time
}

func newStageClock(c *metrics.Collectors) *stageClock {
	return &stageClock{metrics: c}
}

func (c *stageClock) enter(stage queue.Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stage == c.stage {
		return
	}
	c.flush()
	c.stage = stage
	c.since = time.Now()
}

func (c *stageClock) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flush()
	c.stage = ""
}

func (c *stageClock) flush() {
	if c.stage != "" && !c.since.IsZero() {
		c.metrics.ObserveStage(string(c.stage), time.Since(c.since))
	}
}
