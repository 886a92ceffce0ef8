package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podcastforge/internal/config"
	"podcastforge/internal/language"
	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/services/llm"
	"podcastforge/internal/textutil"
)

const (
	defaultMaxSourceChars  = 8000
	defaultMaxTitleChars   = 30
	defaultTitleSimilarity = 0.9
)

// ErrFastPathRejected marks a combined video analysis that failed
// verification or could not be produced. Callers fall back to the full
// download, transcribe and analyze path.
var ErrFastPathRejected = errors.New("fast path rejected")

// Completer issues chat completions. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Settings tunes truncation and verification.
type Settings struct {
	MaxSourceChars  int
	MaxTitleChars   int
	FastPath        bool
	TitleSimilarity float64
	// Language is the default output language when the source carries none.
	Language string
}

// SettingsFromConfig maps the analysis config section.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MaxSourceChars:  cfg.Analysis.MaxSourceChars,
		MaxTitleChars:   cfg.Analysis.MaxTitleChars,
		FastPath:        cfg.Analysis.FastPath,
		TitleSimilarity: cfg.Analysis.TitleSimilarity,
		Language:        cfg.TTS.Locale,
	}
}

// Options carries per-task prompt hints.
type Options struct {
	Style    queue.Style
	Mode     queue.Mode
	Language string
	// KnownTitle skips title generation when the source already has one.
	KnownTitle string
}

// Analysis is the analyzer output.
type Analysis struct {
	Title   string
	Summary string
	Script  string
}

// Analyzer produces titles, summaries and scripts.
type Analyzer struct {
	llm      Completer
	settings Settings
	logger   *slog.Logger
}

// New builds an analyzer.
func New(completer Completer, settings Settings, logger *slog.Logger) *Analyzer {
	if settings.MaxSourceChars <= 0 {
		settings.MaxSourceChars = defaultMaxSourceChars
	}
	if settings.MaxTitleChars <= 0 {
		settings.MaxTitleChars = defaultMaxTitleChars
	}
	if settings.TitleSimilarity <= 0 || settings.TitleSimilarity > 1 {
		settings.TitleSimilarity = defaultTitleSimilarity
	}
	return &Analyzer{
		llm:      completer,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "analyzer"),
	}
}

// FastPathEnabled reports whether combined video analysis is attempted.
func (a *Analyzer) FastPathEnabled() bool {
	return a.settings.FastPath
}

// Truncate bounds text to the configured source limit, marking the cut.
func (a *Analyzer) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= a.settings.MaxSourceChars {
		return text
	}
	return string(runes[:a.settings.MaxSourceChars]) + truncationMarker
}

// Analyze runs title, summary and script generation over text.
func (a *Analyzer) Analyze(ctx context.Context, text string, opts Options) (Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Analysis{}, services.Wrap(services.ErrInvalidInput, "analyzing", "analyze", "no content to analyze", nil)
	}
	if original := len([]rune(text)); original > a.settings.MaxSourceChars {
		text = a.Truncate(text)
		a.logger.Info("source truncated for analysis",
			logging.Int("original_chars", original),
			logging.Int("max_chars", a.settings.MaxSourceChars),
			logging.String(logging.FieldEventType, "analysis_truncated"),
		)
	}
	lang := a.languageHint(opts.Language)

	title := textutil.Truncate(strings.TrimSpace(opts.KnownTitle), a.settings.MaxTitleChars)
	if title == "" {
		title = a.generateTitle(ctx, text, lang)
	}

	summary, err := a.completeField(ctx, "summary", summarySystemPrompt, summaryPrompt(text, lang), "summary")
	if err != nil {
		return Analysis{}, err
	}
	script, err := a.completeField(ctx, "script", scriptSystemPrompt, scriptPrompt(text, summary, opts, lang), "podcastScript", "script")
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Title: title, Summary: summary, Script: script}, nil
}

// generateTitle degrades to a clipped first line of the source because a
// missing title should not fail an otherwise good analysis.
func (a *Analyzer) generateTitle(ctx context.Context, text, lang string) string {
	limit := a.settings.MaxTitleChars
	title, err := a.completeField(ctx, "title", titleSystemPrompt, titlePrompt(text, limit, lang), "title")
	if err != nil {
		logging.WarnWithContext(a.logger, "title generation failed; using source excerpt", "title_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode title is derived from the first line of the source"),
		)
		title = firstLine(text)
	}
	return textutil.Truncate(strings.Trim(title, "\"'“”「」 "), limit)
}

// completeField requests a JSON object and returns the first non-empty
// string among fields, recovering from malformed payloads.
func (a *Analyzer) completeField(ctx context.Context, op, system, user string, fields ...string) (string, error) {
	resp, err := a.llm.Complete(ctx, llm.Request{System: system, User: user, JSON: true, Temperature: 0.7})
	if err != nil {
		if services.Normalize(err) == services.KindConfigurationMissing {
			return "", err
		}
		return "", services.Wrap(services.ErrAnalysisFailed, "analyzing", op, "completion failed", err)
	}
	value, err := decodeField(resp.Content, fields...)
	if err != nil {
		return "", services.Wrap(services.ErrAnalysisFailed, "analyzing", op, "model output unreadable", err)
	}
	a.logger.Debug("analysis field generated",
		logging.String("field", op),
		logging.String("model", resp.Model),
		logging.Int("chars", len([]rune(value))),
	)
	return value, nil
}

// decodeField decodes content as a JSON object, then falls back to regex
// extraction of the named string fields.
func decodeField(content string, fields ...string) (string, error) {
	var payload map[string]any
	decodeErr := llm.DecodeLLMJSON(content, &payload)
	if decodeErr == nil {
		for _, field := range fields {
			if value, ok := payload[field].(string); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), nil
			}
		}
	}
	if value := extractField(content, fields...); value != "" {
		return value, nil
	}
	if decodeErr != nil {
		return "", decodeErr
	}
	return "", fmt.Errorf("missing field %s", strings.Join(fields, "/"))
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func (a *Analyzer) languageHint(code string) string {
	return language.PromptHint(code, language.PromptHint(a.settings.Language, "English"))
}
