package workflow

import (
	"context"
	"errors"

	"podcastforge/internal/analyzer"
	"podcastforge/internal/audioclip"
	"podcastforge/internal/highlight"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
	"podcastforge/internal/synth"
)

// ErrDuplicateTask marks a submission rejected because an active task for
// the same owner, input type and source already exists. It is always
// wrapped with services.ErrInvalidInput.
var ErrDuplicateTask = errors.New("duplicate task")

// Limits applied to submitted source references.
const (
	MaxSourceReferenceChars = 100000
	MaxURLLength            = 2048
)

// VideoSource resolves video references and exposes platform metadata for
// the fast path. *resolve.Video satisfies it.
type VideoSource interface {
	resolve.Resolver
	Metadata(ctx context.Context, ref string) (resolve.VideoMetadata, error)
}

// ContentAnalyzer produces title, summary and script. *analyzer.Analyzer
// satisfies it.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, text string, opts analyzer.Options) (analyzer.Analysis, error)
	FastPath(ctx context.Context, req analyzer.FastPathRequest) (analyzer.Analysis, error)
	FastPathEnabled() bool
}

// EpisodeSynthesizer renders and stores episode audio. *synth.Synthesizer
// satisfies it.
type EpisodeSynthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (synth.Episode, error)
}

// VoiceCatalog lists available TTS voices. *tts.Client satisfies it.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// HighlightExtractor picks one highlight window. *highlight.Extractor
// satisfies it.
type HighlightExtractor interface {
	Extract(ctx context.Context, turns []highlight.Turn, target int) (highlight.Segment, error)
}

// ClipCutter cuts and stores a clip. *audioclip.Service satisfies it.
type ClipCutter interface {
	Clip(ctx context.Context, req audioclip.ClipRequest) (audioclip.Clip, error)
}

// Collaborators bundles the pipeline components the manager orchestrates.
type Collaborators struct {
	Video      VideoSource
	Text       resolve.Resolver
	Article    resolve.Resolver
	Analyzer   ContentAnalyzer
	Synth      EpisodeSynthesizer
	Voices     VoiceCatalog
	Highlights HighlightExtractor
	Clips      ClipCutter
	Storage    storage.Store
}

// SubmitRequest is a new podcast request. Mode, Style and InputType are
// parsed case-insensitively; empty Mode and Style take their defaults.
type SubmitRequest struct {
	OwnerID         string
	InputType       string
	SourceReference string
	Mode            string
	Style           string
	Host1VoiceID    string
	Host2VoiceID    string
}

// HighlightRequest asks for one highlight per duration. An empty Durations
// uses highlights.default_durations.
type HighlightRequest struct {
	TaskID    string
	OwnerID   string
	Durations []int
}

// Job is one dispatched run. SourceReference is the reference the submitter
// saw; the stored row wins when they disagree.
type Job struct {
	TaskID          string
	SourceReference string
}
