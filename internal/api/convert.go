package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"podcastforge/internal/preflight"
	"podcastforge/internal/queue"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/staging"
	"podcastforge/internal/workflow"
)

// TaskOptions selects the large text fields included in a Task DTO.
type TaskOptions struct {
	IncludeTranscript bool
	IncludeScript     bool
}

// FromTask converts a task record to its API representation.
func FromTask(task *queue.Task, opts TaskOptions) Task {
	if task == nil {
		return Task{}
	}
	stage := string(task.Stage)
	if stage == "" {
		stage = string(queue.StageQueued)
	}
	dto := Task{
		ID:              task.ID,
		OwnerID:         task.OwnerID,
		InputType:       string(task.InputType),
		SourceReference: task.SourceReference,
		Mode:            string(task.Mode),
		Style:           string(task.Style),
		Host1VoiceID:    task.Host1VoiceID,
		Host2VoiceID:    task.Host2VoiceID,
		Status:          string(task.Status),
		Progress: TaskProgress{
			Stage:      stage,
			Percent:    task.ProgressPercent,
			Message:    task.ProgressMessage,
			ETASeconds: task.ETASeconds,
		},
		Title:          task.Title,
		Summary:        task.Summary,
		SourceAudioURL: task.SourceAudioURL,
		ErrorKind:      task.ErrorKind,
		ErrorMessage:   task.ErrorMessage,
		CreatedAt:      formatTime(task.CreatedAt),
		UpdatedAt:      formatTime(task.UpdatedAt),
	}
	if opts.IncludeScript {
		dto.Script = task.Script
	}
	if opts.IncludeTranscript {
		dto.Transcript = task.Transcript
	}
	if task.HasEpisode() {
		episode := &Episode{
			ID:              task.EpisodeID,
			Title:           task.EpisodeTitle,
			AudioURL:        task.EpisodeAudioURL,
			DurationSeconds: task.EpisodeDuration,
		}
		if raw := strings.TrimSpace(task.EpisodeScriptJSON); raw != "" && json.Valid([]byte(raw)) {
			episode.Turns = json.RawMessage(raw)
		}
		dto.Episode = episode
	}
	return dto
}

// FromTasks converts task records for list responses. Large text fields are
// omitted.
func FromTasks(tasks []*queue.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task == nil {
			continue
		}
		dto := FromTask(task, TaskOptions{})
		if dto.Episode != nil {
			dto.Episode.Turns = nil
		}
		out = append(out, dto)
	}
	return out
}

// FromHighlight converts a highlight record.
func FromHighlight(h *queue.Highlight) Highlight {
	if h == nil {
		return Highlight{}
	}
	return Highlight{
		ID:                h.ID,
		TaskID:            h.TaskID,
		Title:             h.Title,
		Description:       h.Description,
		StartTime:         h.StartTime,
		EndTime:           h.EndTime,
		Duration:          h.Duration,
		TargetDuration:    h.TargetDuration,
		TranscriptExcerpt: h.TranscriptExcerpt,
		AudioURL:          h.ClipAudioURL,
		CreatedAt:         formatTime(h.CreatedAt),
	}
}

// FromHighlights converts highlight records.
func FromHighlights(list []*queue.Highlight) []Highlight {
	out := make([]Highlight, 0, len(list))
	for _, h := range list {
		if h != nil {
			out = append(out, FromHighlight(h))
		}
	}
	return out
}

// FromVoices converts the TTS catalog.
func FromVoices(voices []tts.Voice) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		out = append(out, Voice{SpeakerID: v.SpeakerID, Name: v.Name, Gender: v.Gender, Locale: v.Locale})
	}
	return out
}

// FromVoicePreference converts a stored preference. Nil yields nil.
func FromVoicePreference(pref *queue.VoicePreference) *VoicePreference {
	if pref == nil {
		return nil
	}
	return &VoicePreference{
		Host1VoiceID: pref.Host1VoiceID,
		Host2VoiceID: pref.Host2VoiceID,
		UpdatedAt:    formatTime(pref.UpdatedAt),
	}
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		Workers:    summary.Workers,
		Queued:     summary.Queued,
		Active:     summary.Active,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastTask != nil {
		last := FromTask(summary.LastTask, TaskOptions{})
		last.Episode = nil
		status.LastTask = &last
	}
	return status
}

// MergeQueueStats returns counts for every status, zero-filled.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats)+4)
	for _, status := range []queue.Status{queue.StatusPending, queue.StatusProcessing, queue.StatusCompleted, queue.StatusFailed} {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] += count
	}
	return out
}

// FromPreflight converts check results and temp usage to a health payload.
// Healthy is false when a required check failed.
func FromPreflight(results []preflight.Result, usage staging.Usage) HealthResponse {
	checks := make([]CheckResult, 0, len(results))
	for _, r := range results {
		checks = append(checks, CheckResult{Name: r.Name, Passed: r.Passed, Optional: r.Optional, Detail: r.Detail})
	}
	slices.SortStableFunc(checks, func(a, b CheckResult) int {
		// failures first so they are visible at the top
		if a.Passed == b.Passed {
			return 0
		}
		if !a.Passed {
			return -1
		}
		return 1
	})
	return HealthResponse{
		Healthy: len(preflight.Failed(results)) == 0,
		Checks:  checks,
		Temp: TempUsage{
			Directories: usage.Directories,
			Bytes:       usage.Bytes,
			Oldest:      formatTime(usage.Oldest),
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
