package queue

import (
	"database/sql"
	"errors"
	"time"
)

const taskColumns = "id, owner_id, input_type, source_reference, mode, style, host1_voice_id, host2_voice_id, status, stage, progress_percent, progress_message, eta_seconds, title, transcript, summary, script, source_audio_url, source_audio_key, episode_id, episode_title, episode_audio_url, episode_audio_key, episode_script_json, episode_duration, error_kind, error_message, heartbeat_at, created_at, updated_at"

const highlightColumns = "id, task_id, owner_id, title, description, start_time, end_time, duration, target_duration, transcript_excerpt, clip_audio_url, clip_asset_key, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(scanner rowScanner) (*Task, error) {
	var (
		task                       Task
		inputType, mode, style     string
		status, stage              string
		host1, host2               sql.NullString
		progressMessage            sql.NullString
		eta                        sql.NullInt64
		title, transcript, summary sql.NullString
		script                     sql.NullString
		sourceAudioURL, sourceKey  sql.NullString
		episodeID, episodeTitle    sql.NullString
		episodeURL, episodeKey     sql.NullString
		episodeScript              sql.NullString
		errorKind, errorMessage    sql.NullString
		heartbeatRaw               sql.NullString
		createdRaw, updatedRaw     string
	)
	if err := scanner.Scan(
		&task.ID, &task.OwnerID, &inputType, &task.SourceReference, &mode, &style, &host1, &host2,
		&status, &stage, &task.ProgressPercent, &progressMessage, &eta,
		&title, &transcript, &summary, &script, &sourceAudioURL, &sourceKey,
		&episodeID, &episodeTitle, &episodeURL, &episodeKey, &episodeScript, &task.EpisodeDuration,
		&errorKind, &errorMessage, &heartbeatRaw, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	task.InputType = InputType(inputType)
	task.Mode = Mode(mode)
	task.Style = Style(style)
	task.Host1VoiceID = host1.String
	task.Host2VoiceID = host2.String
	task.Status = Status(status)
	task.Stage = Stage(stage)
	task.ProgressMessage = progressMessage.String
	if eta.Valid {
		v := int(eta.Int64)
		task.ETASeconds = &v
	}
	task.Title = title.String
	task.Transcript = transcript.String
	task.Summary = summary.String
	task.Script = script.String
	task.SourceAudioURL = sourceAudioURL.String
	task.SourceAudioKey = sourceKey.String
	task.EpisodeID = episodeID.String
	task.EpisodeTitle = episodeTitle.String
	task.EpisodeAudioURL = episodeURL.String
	task.EpisodeAudioKey = episodeKey.String
	task.EpisodeScriptJSON = episodeScript.String
	task.ErrorKind = errorKind.String
	task.ErrorMessage = errorMessage.String

	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			task.HeartbeatAt = &heartbeat
		}
	}
	return &task, nil
}

func scanHighlight(scanner rowScanner) (*Highlight, error) {
	var (
		h                    Highlight
		description, excerpt sql.NullString
		createdRaw           string
	)
	if err := scanner.Scan(
		&h.ID, &h.TaskID, &h.OwnerID, &h.Title, &description,
		&h.StartTime, &h.EndTime, &h.Duration, &h.TargetDuration,
		&excerpt, &h.ClipAudioURL, &h.ClipAssetKey, &createdRaw,
	); err != nil {
		return nil, err
	}
	h.Description = description.String
	h.TranscriptExcerpt = excerpt.String
	if created, err := parseTimeString(createdRaw); err == nil {
		h.CreatedAt = created
	}
	return &h, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return int64(*value)
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
