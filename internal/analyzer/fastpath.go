package analyzer

import (
	"context"
	"fmt"
	"strings"

	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services/llm"
	"podcastforge/internal/textutil"
)

// FastPathRequest identifies the video a combined analysis must describe.
type FastPathRequest struct {
	SourceReference string
	VideoID         string
	// GroundTruthTitle comes from the video platform, never from the model.
	GroundTruthTitle string
	Style            queue.Style
	Mode             queue.Mode
	Language         string
}

type fastPathPayload struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	PodcastScript string `json:"podcastScript"`
	Script        string `json:"script"`
}

// FastPath asks the model to analyze the video directly. The result is
// returned only when the echoed video id equals req.VideoID and the echoed
// title is similar enough to the ground truth; every other outcome is an
// ErrFastPathRejected error.
func (a *Analyzer) FastPath(ctx context.Context, req FastPathRequest) (Analysis, error) {
	if !a.settings.FastPath {
		return Analysis{}, fmt.Errorf("%w: disabled", ErrFastPathRejected)
	}
	if strings.TrimSpace(req.VideoID) == "" || strings.TrimSpace(req.GroundTruthTitle) == "" {
		return Analysis{}, fmt.Errorf("%w: video id and ground-truth title are required", ErrFastPathRejected)
	}
	lang := a.languageHint(req.Language)
	resp, err := a.llm.Complete(ctx, llm.Request{
		System:      fastPathSystemPrompt,
		User:        fastPathPrompt(req, lang),
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %w", ErrFastPathRejected, err)
	}
	payload := parseFastPath(resp.Content)
	if err := a.verify(req, payload); err != nil {
		logging.WarnWithContext(a.logger, "fast path rejected", "fast_path_rejected",
			logging.String("video_id", req.VideoID),
			logging.String("model", resp.Model),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to download and transcription"),
		)
		return Analysis{}, err
	}
	a.logger.Info("fast path accepted",
		logging.String("video_id", req.VideoID),
		logging.String("model", resp.Model),
		logging.String(logging.FieldEventType, "fast_path_accepted"),
	)
	return Analysis{
		Title:   textutil.Truncate(strings.TrimSpace(req.GroundTruthTitle), a.settings.MaxTitleChars),
		Summary: strings.TrimSpace(payload.Summary),
		Script:  strings.TrimSpace(firstNonEmpty(payload.PodcastScript, payload.Script)),
	}, nil
}

func (a *Analyzer) verify(req FastPathRequest, payload fastPathPayload) error {
	got := strings.TrimSpace(payload.VideoID)
	if got == "" {
		return fmt.Errorf("%w: model did not echo a video id", ErrFastPathRejected)
	}
	if got != req.VideoID {
		return fmt.Errorf("%w: video id mismatch: expected %s, got %s", ErrFastPathRejected, req.VideoID, got)
	}
	similarity := textutil.TitleSimilarity(payload.Title, req.GroundTruthTitle)
	if similarity < a.settings.TitleSimilarity {
		return fmt.Errorf("%w: title mismatch: expected %q, got %q (similarity %.2f)",
			ErrFastPathRejected, req.GroundTruthTitle, payload.Title, similarity)
	}
	if strings.TrimSpace(payload.Summary) == "" || strings.TrimSpace(firstNonEmpty(payload.PodcastScript, payload.Script)) == "" {
		return fmt.Errorf("%w: summary or script missing", ErrFastPathRejected)
	}
	return nil
}

func parseFastPath(content string) fastPathPayload {
	var payload fastPathPayload
	if err := llm.DecodeLLMJSON(content, &payload); err == nil {
		return payload
	}
	return fastPathPayload{
		VideoID:       extractField(content, "videoId"),
		Title:         extractField(content, "title"),
		Summary:       extractField(content, "summary"),
		PodcastScript: extractField(content, "podcastScript", "script"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
