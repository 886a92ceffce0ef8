package api

import (
	"testing"
	"time"

	"podcastforge/internal/preflight"
	"podcastforge/internal/queue"
	"podcastforge/internal/staging"
	"podcastforge/internal/workflow"
)

func TestFromTaskIncludesEpisode(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eta := 45
	task := &queue.Task{
		ID:                "t-1",
		OwnerID:           "owner",
		InputType:         queue.InputVideo,
		SourceReference:   "https://youtu.be/dQw4w9WgXcQ",
		Mode:              queue.ModeMedium,
		Style:             queue.StyleCasual,
		Status:            queue.StatusCompleted,
		Stage:             queue.StageCompleted,
		ProgressPercent:   100,
		ETASeconds:        &eta,
		Title:             "Tea",
		Transcript:        "long transcript",
		Script:            "Host 1: hi",
		EpisodeID:         "ep-1",
		EpisodeTitle:      "Tea",
		EpisodeAudioURL:   "https://cdn.example/ep.mp3",
		EpisodeScriptJSON: `[{"host":1,"content":"hi"}]`,
		EpisodeDuration:   12.5,
		CreatedAt:         created,
	}

	dto := FromTask(task, TaskOptions{IncludeScript: true})
	if dto.Progress.Stage != "completed" || dto.Progress.Percent != 100 || dto.Progress.ETASeconds == nil {
		t.Fatalf("unexpected progress %+v", dto.Progress)
	}
	if dto.Script != "Host 1: hi" || dto.Transcript != "" {
		t.Fatalf("unexpected text fields script=%q transcript=%q", dto.Script, dto.Transcript)
	}
	if dto.Episode == nil || dto.Episode.AudioURL != task.EpisodeAudioURL || string(dto.Episode.Turns) != task.EpisodeScriptJSON {
		t.Fatalf("unexpected episode %+v", dto.Episode)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("zero time should be omitted, got %q", dto.UpdatedAt)
	}

	list := FromTasks([]*queue.Task{task, nil})
	if len(list) != 1 || list[0].Episode == nil || list[0].Episode.Turns != nil {
		t.Fatalf("list entries should drop episode turns, got %+v", list)
	}
}

func TestFromTaskDefaultsStage(t *testing.T) {
	dto := FromTask(&queue.Task{ID: "t", Status: queue.StatusPending}, TaskOptions{})
	if dto.Progress.Stage != "queued" {
		t.Fatalf("expected queued stage, got %q", dto.Progress.Stage)
	}
	if dto.Episode != nil {
		t.Fatal("pending task has no episode")
	}
}

func TestMergeQueueStatsZeroFills(t *testing.T) {
	stats := MergeQueueStats(map[queue.Status]int{queue.StatusFailed: 2})
	if stats["pending"] != 0 || stats["failed"] != 2 || len(stats) != 4 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestFromStatusSummary(t *testing.T) {
	status := FromStatusSummary(workflow.StatusSummary{
		Running:  true,
		Workers:  2,
		Active:   1,
		LastTask: &queue.Task{ID: "t-9", Status: queue.StatusProcessing, EpisodeAudioURL: "x"},
	})
	if !status.Running || status.Workers != 2 || status.Active != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LastTask == nil || status.LastTask.ID != "t-9" || status.LastTask.Episode != nil {
		t.Fatalf("unexpected last task %+v", status.LastTask)
	}
}

func TestFromPreflightOrdersFailuresFirst(t *testing.T) {
	resp := FromPreflight([]preflight.Result{
		{Name: "Data directory", Passed: true},
		{Name: "yt-dlp", Optional: true, Detail: "missing"},
		{Name: "FFmpeg", Detail: "missing"},
	}, staging.Usage{Directories: 1, Bytes: 10})

	if resp.Healthy {
		t.Fatal("required failure should mark unhealthy")
	}
	if resp.Checks[0].Passed || resp.Checks[len(resp.Checks)-1].Name != "Data directory" {
		t.Fatalf("expected failures first, got %+v", resp.Checks)
	}
	if resp.Temp.Directories != 1 || resp.Temp.Bytes != 10 || resp.Temp.Oldest != "" {
		t.Fatalf("unexpected temp usage %+v", resp.Temp)
	}

	ok := FromPreflight([]preflight.Result{{Name: "yt-dlp", Optional: true}}, staging.Usage{})
	if !ok.Healthy {
		t.Fatal("optional failures must not mark unhealthy")
	}
}
