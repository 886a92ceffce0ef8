package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"podcastforge/internal/analyzer"
	"podcastforge/internal/audioclip"
	"podcastforge/internal/config"
	"podcastforge/internal/highlight"
	"podcastforge/internal/media/ffmpeg"
	"podcastforge/internal/metrics"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services/llm"
	"podcastforge/internal/services/transcribe"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
	"podcastforge/internal/synth"
)

// Clients are the concrete gateways behind the collaborators, exposed for
// readiness checks.
type Clients struct {
	LLM           *llm.Client
	Transcription *transcribe.Client
	TTS           *tts.Client
	Storage       storage.Store
}

// BuildCollaborators wires the production pipeline from cfg.
func BuildCollaborators(ctx context.Context, cfg *config.Config, logger *slog.Logger, collectors *metrics.Collectors) (Collaborators, Clients, error) {
	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return Collaborators{}, Clients{}, fmt.Errorf("open object storage: %w", err)
	}
	store = storage.Observed(store, collectors.StoredObject)

	llmCfg := cfg.GetLLM()
	llmClient := llm.NewClient(llm.Config{
		APIKey:            llmCfg.APIKey,
		BaseURL:           llmCfg.BaseURL,
		Models:            llmCfg.Models,
		Referer:           llmCfg.Referer,
		Title:             llmCfg.Title,
		TimeoutSeconds:    llmCfg.TimeoutSeconds,
		RequestsPerMinute: llmCfg.RequestsPerMinute,
	}, llm.WithLogger(logger), llm.WithAttemptObserver(collectors.ModelAttempt))

	transcriber := transcribe.NewClient(transcribe.Config{
		BaseURL:        cfg.Transcription.BaseURL,
		APIKey:         cfg.Transcription.APIKey,
		Model:          cfg.Transcription.Model,
		Language:       cfg.Transcription.Language,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	}, nil, logger)

	speech := tts.NewClient(tts.Config{
		BaseURL:           cfg.TTS.BaseURL,
		APIKey:            cfg.TTS.APIKey,
		Locale:            cfg.TTS.Locale,
		TimeoutSeconds:    cfg.TTS.TimeoutSeconds,
		RequestsPerMinute: cfg.TTS.RequestsPerMinute,
	}, nil, logger)

	media := ffmpeg.New(cfg.Workflow.FFmpegBinary)
	fetchTimeout := time.Duration(cfg.Workflow.FetchTimeoutSeconds) * time.Second

	deps := Collaborators{
		Video: resolve.NewVideo(resolve.VideoConfig{
			YtDlpBinary:   cfg.Workflow.YtDlpBinary,
			TempDir:       cfg.Paths.TempDir,
			MaxAudioBytes: int64(cfg.Workflow.MaxAudioMB) << 20,
			Language:      cfg.Transcription.Language,
		}, store, transcriber, logger),
		Text:     resolve.Text{},
		Article:  resolve.NewArticle(nil, fetchTimeout, logger),
		Analyzer: analyzer.New(llmClient, analyzer.SettingsFromConfig(cfg), logger),
		Synth: synth.New(synth.Config{
			TempDir:       cfg.Paths.TempDir,
			FFprobeBinary: cfg.Workflow.FFprobeBinary,
		}, speech, media, store, logger),
		Voices:     speech,
		Highlights: highlight.NewExtractor(llmClient, highlight.SettingsFromConfig(cfg), logger),
		Clips: audioclip.New(audioclip.Config{
			TempDir: cfg.Paths.TempDir,
			Bitrate: cfg.Highlights.ClipBitrate,
		}, store, media, clipClient(fetchTimeout), logger),
		Storage: store,
	}
	clients := Clients{LLM: llmClient, Transcription: transcriber, TTS: speech, Storage: store}
	return deps, clients, nil
}

// clipClient downloads episode audio for clipping; episodes are larger than
// articles so the fetch timeout is only a floor.
func clipClient(fetchTimeout time.Duration) *http.Client {
	if fetchTimeout < 2*time.Minute {
		return nil
	}
	return &http.Client{Timeout: fetchTimeout}
}
