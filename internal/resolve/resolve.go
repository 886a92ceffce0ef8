package resolve

import (
	"context"

	"podcastforge/internal/progress"
	"podcastforge/internal/services/transcribe"
)

// Content is the resolved form of a source reference.
type Content struct {
	Title           string
	Text            string
	RawAudioURL     string
	RawAudioKey     string
	DurationSeconds float64
	Language        string
	// Segments carries transcript timestamps when the source was transcribed.
	Segments []transcribe.Segment
}

// Resolver converts one modality's source reference into Content. reporter
// may be nil.
type Resolver interface {
	Resolve(ctx context.Context, sourceReference string, reporter progress.Reporter) (Content, error)
}

func report(ctx context.Context, reporter progress.Reporter, update progress.Update) {
	if reporter == nil {
		return
	}
	_ = reporter.Report(ctx, update)
}
