package queue

import (
	"strings"
	"time"
)

// Status is the coarse lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Stage is the fine-grained pipeline position reported to users.
type Stage string

const (
	StageQueued       Stage = "queued"
	StageDownloading  Stage = "downloading"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageGenerating   Stage = "generating"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// InputType names the source modality of a submission.
type InputType string

const (
	InputVideo   InputType = "video"
	InputText    InputType = "text"
	InputArticle InputType = "article"
)

// Mode is the requested depth of the generated podcast.
type Mode string

const (
	ModeQuick  Mode = "quick"
	ModeMedium Mode = "medium"
	ModeDeep   Mode = "deep"
)

// Style is the requested tone of the generated podcast.
type Style string

const (
	StyleEducational  Style = "educational"
	StyleCasual       Style = "casual"
	StyleProfessional Style = "professional"
)

// DaemonStopMessage is recorded on tasks interrupted by shutdown or found
// orphaned at startup.
const DaemonStopMessage = "Processing was interrupted. Please submit the content again."

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

var allStages = []Stage{
	StageQueued, StageDownloading, StageTranscribing, StageAnalyzing,
	StageGenerating, StageCompleted, StageFailed,
}

// Task is one podcast generation run persisted in the store.
type Task struct {
	ID              string
	OwnerID         string
	InputType       InputType
	SourceReference string
	Mode            Mode
	Style           Style
	Host1VoiceID    string
	Host2VoiceID    string

	Status          Status
	Stage           Stage
	ProgressPercent float64
	ProgressMessage string
	ETASeconds      *int

	Title             string
	Transcript        string
	Summary           string
	Script            string
	SourceAudioURL    string
	SourceAudioKey    string
	EpisodeID         string
	EpisodeTitle      string
	EpisodeAudioURL   string
	EpisodeAudioKey   string
	EpisodeScriptJSON string
	EpisodeDuration   float64

	ErrorKind    string
	ErrorMessage string

	HeartbeatAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether the task reached completed or failed.
func (t Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// IsActive reports whether the task is queued or running.
func (t Task) IsActive() bool {
	return t.Status == StatusPending || t.Status == StatusProcessing
}

// HasEpisode reports whether synthesized audio is attached.
func (t Task) HasEpisode() bool {
	return strings.TrimSpace(t.EpisodeAudioURL) != ""
}

// Highlight is a short clip cut from a completed task's episode.
type Highlight struct {
	ID                string
	TaskID            string
	OwnerID           string
	Title             string
	Description       string
	StartTime         float64
	EndTime           float64
	Duration          float64
	TargetDuration    int
	TranscriptExcerpt string
	ClipAudioURL      string
	ClipAssetKey      string
	CreatedAt         time.Time
}

// VoicePreference stores an owner's default host voices.
type VoicePreference struct {
	OwnerID      string
	Host1VoiceID string
	Host2VoiceID string
	UpdatedAt    time.Time
}

// SourceResult captures what resolution and analysis produced for a task.
type SourceResult struct {
	Title          string
	Transcript     string
	Summary        string
	Script         string
	SourceAudioURL string
	SourceAudioKey string
}

// EpisodeResult captures the synthesized episode.
type EpisodeResult struct {
	ID              string
	Title           string
	AudioURL        string
	AudioKey        string
	ScriptJSON      string
	DurationSeconds float64
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the store.
type DatabaseHealth struct {
	Driver        string
	Location      string
	SchemaVersion int
	Readable      bool
	TotalTasks    int
	Error         string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range allStages {
		if stage == normalized {
			return stage, true
		}
	}
	return "", false
}

// ParseInputType converts a string into a known InputType.
func ParseInputType(value string) (InputType, bool) {
	switch InputType(strings.ToLower(strings.TrimSpace(value))) {
	case InputVideo:
		return InputVideo, true
	case InputText:
		return InputText, true
	case InputArticle:
		return InputArticle, true
	}
	return "", false
}

// ParseMode converts a string into a Mode, defaulting to medium.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeMedium:
		return ModeMedium, true
	case ModeQuick:
		return ModeQuick, true
	case ModeDeep:
		return ModeDeep, true
	}
	return "", false
}

// ParseStyle converts a string into a Style, defaulting to casual.
func ParseStyle(value string) (Style, bool) {
	switch Style(strings.ToLower(strings.TrimSpace(value))) {
	case "", StyleCasual:
		return StyleCasual, true
	case StyleEducational:
		return StyleEducational, true
	case StyleProfessional:
		return StyleProfessional, true
	}
	return "", false
}
