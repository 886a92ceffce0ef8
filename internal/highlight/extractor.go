package highlight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"podcastforge/internal/config"
	"podcastforge/internal/language"
	"podcastforge/internal/logging"
	"podcastforge/internal/services"
	"podcastforge/internal/services/llm"
)

const (
	// CeilingSeconds is the longest clip any target can produce.
	CeilingSeconds         = 60
	defaultSecondsPerChar  = 0.3
	defaultExtendThreshold = 0.8
)

// Turn is one script paragraph offered to the model.
type Turn struct {
	Speaker string
	Content string
}

// Segment is a passage mapped onto audio time. EndTime-StartTime equals
// Duration and 0 < Duration <= CeilingSeconds.
type Segment struct {
	Title             string
	Description       string
	Reason            string
	StartIndex        int
	EndIndex          int
	StartTime         float64
	EndTime           float64
	Duration          float64
	TargetDuration    int
	TranscriptExcerpt string
}

// Completer issues chat completions. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Settings tunes time estimation.
type Settings struct {
	SecondsPerChar     float64
	MaxDurationSeconds int
	// ExtendThreshold is the share of target characters below which the
	// passage is extended with following turns.
	ExtendThreshold float64
	Language        string
}

// SettingsFromConfig maps the highlights config section.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SecondsPerChar:     cfg.Highlights.SecondsPerChar,
		MaxDurationSeconds: cfg.Highlights.MaxDurationSeconds,
		ExtendThreshold:    cfg.Highlights.ExtendThreshold,
		Language:           cfg.TTS.Locale,
	}
}

// Extractor asks the model for a highlight and normalizes its answer.
type Extractor struct {
	llm      Completer
	settings Settings
	logger   *slog.Logger
}

// NewExtractor builds an extractor.
func NewExtractor(completer Completer, settings Settings, logger *slog.Logger) *Extractor {
	if settings.SecondsPerChar <= 0 {
		settings.SecondsPerChar = defaultSecondsPerChar
	}
	if settings.MaxDurationSeconds <= 0 || settings.MaxDurationSeconds > CeilingSeconds {
		settings.MaxDurationSeconds = CeilingSeconds
	}
	if settings.ExtendThreshold <= 0 || settings.ExtendThreshold > 1 {
		settings.ExtendThreshold = defaultExtendThreshold
	}
	return &Extractor{
		llm:      completer,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "highlight"),
	}
}

// SecondsPerChar returns the speech-rate estimate in use.
func (e *Extractor) SecondsPerChar() float64 {
	return e.settings.SecondsPerChar
}

// ClipDuration returns target when it lies in (0, ceiling], else the ceiling.
func (e *Extractor) ClipDuration(target int) int {
	if target > 0 && target <= e.settings.MaxDurationSeconds {
		return target
	}
	return e.settings.MaxDurationSeconds
}

// TargetChars is the character count that fills duration seconds.
func (e *Extractor) TargetChars(duration int) int {
	return int(math.Ceil(float64(duration) / e.settings.SecondsPerChar))
}

// Extract selects one passage of roughly target seconds from turns.
func (e *Extractor) Extract(ctx context.Context, turns []Turn, target int) (Segment, error) {
	if len(turns) == 0 {
		return Segment{}, services.Wrap(services.ErrInvalidInput, "highlights", "extract", "script has no turns", nil)
	}
	duration := e.ClipDuration(target)
	targetChars := e.TargetChars(duration)

	resp, err := e.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        e.prompt(turns, duration, targetChars),
		JSON:        true,
		Temperature: 0.8,
	})
	if err != nil {
		if services.Normalize(err) == services.KindConfigurationMissing {
			return Segment{}, err
		}
		return Segment{}, services.Wrap(services.ErrAnalysisFailed, "highlights", "extract", "completion failed", err)
	}

	var raw RawSegment
	switch parsed := ParseModelOutput(resp.Content).(type) {
	case Segments:
		raw = parsed[0]
	case Failure:
		return Segment{}, services.Wrap(services.ErrAnalysisFailed, "highlights", "extract", parsed.Reason, nil)
	}

	segment := e.place(turns, raw, duration)
	segment.TargetDuration = target
	e.logger.Info("highlight selected",
		logging.Int("target_seconds", target),
		logging.Int("start_index", segment.StartIndex),
		logging.Int("end_index", segment.EndIndex),
		logging.Float64("start_time", segment.StartTime),
		logging.Float64("duration", segment.Duration),
		logging.String("model", resp.Model),
		logging.String(logging.FieldEventType, "highlight_selected"),
	)
	return segment, nil
}

// place clamps the model's indexes to the script, extends short passages
// and assigns audio times.
func (e *Extractor) place(turns []Turn, raw RawSegment, duration int) Segment {
	last := len(turns) - 1
	start := clamp(int(raw.StartIndex), 0, last)
	end := clamp(int(raw.EndIndex), start, last)

	targetChars := e.TargetChars(duration)
	chars := charCount(turns[start : end+1])
	if float64(chars) < float64(targetChars)*e.settings.ExtendThreshold {
		for chars < targetChars && end < last {
			end++
			chars += runeLen(turns[end].Content)
		}
	}

	startTime := math.Floor(float64(charCount(turns[:start])) * e.settings.SecondsPerChar)

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = fmt.Sprintf("%d-second highlight", duration)
	}
	seconds := float64(duration)
	return Segment{
		Title:             title,
		Description:       strings.TrimSpace(raw.Description),
		Reason:            strings.TrimSpace(raw.Reason),
		StartIndex:        start,
		EndIndex:          end,
		StartTime:         startTime,
		EndTime:           startTime + seconds,
		Duration:          seconds,
		TranscriptExcerpt: excerpt(turns[start : end+1]),
	}
}

func (e *Extractor) prompt(turns []Turn, duration, targetChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find the single most engaging passage lasting about %d seconds.\n", duration)
	fmt.Fprintf(&b, "Speech runs at roughly %.2f seconds per character, so aim for about %d characters. ",
		e.settings.SecondsPerChar, targetChars)
	b.WriteString("If one turn is too short, span several consecutive turns. Never exceed 60 seconds and do not cut a sentence in half.\n")
	fmt.Fprintf(&b, "Write title, description and reason in %s.\n\n", language.PromptHint(e.settings.Language, "English"))
	b.WriteString("Transcript:\n")
	for i, turn := range turns {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i, turn.Speaker, turn.Content)
	}
	b.WriteString("\nRespond with JSON only:\n")
	b.WriteString(`{"segments":[{"title":"...","description":"...","startIndex":0,"endIndex":0,"reason":"..."}]}`)
	return b.String()
}

const systemPrompt = `You are a podcast editor who finds the most compelling moments in an episode:
climaxes, memorable quotes, crisp summaries of core ideas, and stories that resonate.
Return exactly one segment. Respond with plain JSON and no markdown.`

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func runeLen(s string) int {
	return len([]rune(s))
}

func charCount(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += runeLen(t.Content)
	}
	return total
}

func excerpt(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Speaker != "" {
			lines = append(lines, t.Speaker+": "+t.Content)
		} else {
			lines = append(lines, t.Content)
		}
	}
	return strings.Join(lines, "\n")
}
