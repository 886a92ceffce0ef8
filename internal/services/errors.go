package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the normalized failure category persisted on a task and reported to users.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindSourceFetchFailed    Kind = "source_fetch_failed"
	KindTranscriptionFailed  Kind = "transcription_failed"
	KindAnalysisFailed       Kind = "analysis_failed"
	KindSynthesisFailed      Kind = "synthesis_failed"
	KindStorageFailed        Kind = "storage_failed"
	KindNotFound             Kind = "not_found"
	KindConfigurationMissing Kind = "configuration_missing"
	KindInternal             Kind = "internal"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrSourceFetchFailed    = errors.New("source fetch failed")
	ErrTranscriptionFailed  = errors.New("transcription failed")
	ErrAnalysisFailed       = errors.New("analysis failed")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrStorageFailed        = errors.New("storage failed")
	ErrNotFound             = errors.New("not found")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrInternal             = errors.New("internal error")
)

var kindSentinels = []struct {
	kind   Kind
	marker error
}{
	{KindInvalidInput, ErrInvalidInput},
	{KindSourceFetchFailed, ErrSourceFetchFailed},
	{KindTranscriptionFailed, ErrTranscriptionFailed},
	{KindAnalysisFailed, ErrAnalysisFailed},
	{KindSynthesisFailed, ErrSynthesisFailed},
	{KindStorageFailed, ErrStorageFailed},
	{KindNotFound, ErrNotFound},
	{KindConfigurationMissing, ErrConfigurationMissing},
	{KindInternal, ErrInternal},
}

var userMessages = map[Kind]string{
	KindInvalidInput:         "The submitted content is invalid. Please check the input and try again.",
	KindSourceFetchFailed:    "We could not retrieve the source content. Please check the link and try again.",
	KindTranscriptionFailed:  "Speech transcription failed. Please try again later.",
	KindAnalysisFailed:       "AI analysis of the content failed. Please try again later.",
	KindSynthesisFailed:      "Podcast audio generation failed. Please try again later.",
	KindStorageFailed:        "Saving the generated audio failed. Please try again later.",
	KindNotFound:             "The requested item could not be found.",
	KindConfigurationMissing: "The service is not configured correctly. Please contact the administrator.",
	KindInternal:             "An unexpected error occurred. Please try again later.",
}

// ErrorClassifier lets collaborator errors declare their own kind.
type ErrorClassifier interface {
	ErrorKind() Kind
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Sentinel returns the marker error for a kind.
func (k Kind) Sentinel() error {
	for _, entry := range kindSentinels {
		if entry.kind == k {
			return entry.marker
		}
	}
	return ErrInternal
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := userMessages[k]
	return ok
}

// Normalize maps err onto a taxonomy kind. Explicit markers win; messages
// are inspected only when typing was lost crossing a provider boundary.
func Normalize(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind.Valid() {
			return kind
		}
	}
	for _, entry := range kindSentinels {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	if kind, ok := ClassifyMessage(err.Error()); ok {
		return kind
	}
	return KindInternal
}

var messageHeuristics = []struct {
	kind      Kind
	fragments []string
}{
	{KindSourceFetchFailed, []string{"yt-dlp", "youtube", "video unavailable", "fetch article", "download source", "readability"}},
	{KindTranscriptionFailed, []string{"transcri", "speech-to-text", "whisper"}},
	{KindAnalysisFailed, []string{"llm", "completion", "model output", "openrouter"}},
	{KindSynthesisFailed, []string{"tts", "synthes", "ffmpeg"}},
	{KindStorageFailed, []string{"s3", "bucket", "upload", "storage"}},
	{KindConfigurationMissing, []string{"api key", "api_key", "not configured", "configuration"}},
	{KindNotFound, []string{"not found", "no such"}},
}

// ClassifyMessage maps free-form error text onto a kind using keyword heuristics.
func ClassifyMessage(message string) (Kind, bool) {
	lower := strings.ToLower(message)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	for _, rule := range messageHeuristics {
		for _, fragment := range rule.fragments {
			if strings.Contains(lower, fragment) {
				return rule.kind, true
			}
		}
	}
	return "", false
}

// UserMessage returns the fixed user-facing sentence for kind. Internal detail
// never leaks through this mapping.
func UserMessage(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindInternal]
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
