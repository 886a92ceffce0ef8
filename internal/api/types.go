package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// OwnerHeader carries the caller's owner id. Requests without it act as
// DefaultOwner.
const (
	OwnerHeader  = "X-Owner-ID"
	DefaultOwner = "local"
)

// Task describes a podcast task in a transport-friendly format.
type Task struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"ownerId"`
	InputType       string       `json:"inputType"`
	SourceReference string       `json:"sourceReference"`
	Mode            string       `json:"mode"`
	Style           string       `json:"style"`
	Host1VoiceID    string       `json:"host1VoiceId,omitempty"`
	Host2VoiceID    string       `json:"host2VoiceId,omitempty"`
	Status          string       `json:"status"`
	Progress        TaskProgress `json:"progress"`
	Title           string       `json:"title,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	Script          string       `json:"script,omitempty"`
	Transcript      string       `json:"transcript,omitempty"`
	SourceAudioURL  string       `json:"sourceAudioUrl,omitempty"`
	Episode         *Episode     `json:"episode,omitempty"`
	ErrorKind       string       `json:"errorKind,omitempty"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	CreatedAt       string       `json:"createdAt,omitempty"`
	UpdatedAt       string       `json:"updatedAt,omitempty"`
}

// TaskProgress captures stage progress information for a task.
type TaskProgress struct {
	Stage      string  `json:"stage"`
	Percent    float64 `json:"percent"`
	Message    string  `json:"message"`
	ETASeconds *int    `json:"etaSeconds,omitempty"`
}

// Episode is the synthesized audio attached to a completed task.
type Episode struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	AudioURL        string          `json:"audioUrl"`
	DurationSeconds float64         `json:"durationSeconds"`
	Turns           json.RawMessage `json:"turns,omitempty"`
}

// Highlight is a short clip cut from an episode.
type Highlight struct {
	ID                string  `json:"id"`
	TaskID            string  `json:"taskId"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	StartTime         float64 `json:"startTime"`
	EndTime           float64 `json:"endTime"`
	Duration          float64 `json:"duration"`
	TargetDuration    int     `json:"targetDuration"`
	TranscriptExcerpt string  `json:"transcriptExcerpt,omitempty"`
	AudioURL          string  `json:"audioUrl"`
	CreatedAt         string  `json:"createdAt,omitempty"`
}

// Voice is one TTS catalog entry.
type Voice struct {
	SpeakerID string `json:"speakerId"`
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// VoicePreference is an owner's saved host voices.
type VoicePreference struct {
	Host1VoiceID string `json:"host1VoiceId"`
	Host2VoiceID string `json:"host2VoiceId"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// SubmitTaskRequest is the body of POST /api/tasks.
type SubmitTaskRequest struct {
	InputType       string `json:"inputType"`
	SourceReference string `json:"sourceReference"`
	Mode            string `json:"mode,omitempty"`
	Style           string `json:"style,omitempty"`
	Host1VoiceID    string `json:"host1VoiceId,omitempty"`
	Host2VoiceID    string `json:"host2VoiceId,omitempty"`
}

// SubmitTaskResponse acknowledges a submission.
type SubmitTaskResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// HighlightsRequest is the body of POST /api/tasks/{id}/highlights.
type HighlightsRequest struct {
	Durations []int `json:"durations,omitempty"`
}

// TaskListResponse wraps a collection of tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// HighlightListResponse wraps a collection of highlights.
type HighlightListResponse struct {
	Highlights []Highlight `json:"highlights"`
}

// VoiceListResponse wraps the voice catalog.
type VoiceListResponse struct {
	Voices []Voice `json:"voices"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Workers    int            `json:"workers"`
	Queued     int            `json:"queued"`
	Active     int            `json:"active"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastTask   *Task          `json:"lastTask,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath,omitempty"`
	LockFilePath string         `json:"lockFilePath"`
	LogPath      string         `json:"logPath,omitempty"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// CheckResult is one preflight check.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// TempUsage reports scratch directories left under temp_dir.
type TempUsage struct {
	Directories int    `json:"directories"`
	Bytes       int64  `json:"bytes"`
	Oldest      string `json:"oldest,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
	Temp    TempUsage     `json:"temp"`
}

// ErrorResponse is returned for every non-2xx status. Message is safe to
// show to end users.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}
